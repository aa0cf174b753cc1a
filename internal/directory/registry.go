package directory

import (
	"context"

	"graphql-eager/internal/eager"
	"graphql-eager/internal/sqlload"
)

// Registry holds the eager node types of the directory and the root queries
// that feed them.
type Registry struct {
	Users     *eager.Type[*User, UserRecord]
	Countries *eager.Type[*Country, CountryRecord]
	Companies *eager.Type[*Company, CompanyRecord]

	src    sqlload.Source
	tables Tables
}

func userID(u UserRecord) int64       { return u.ID }
func countryID(c CountryRecord) int64 { return c.ID }
func companyID(c CompanyRecord) int64 { return c.ID }

func userManagerID(u UserRecord) (int64, bool) {
	if u.ManagerID == nil {
		return 0, false
	}
	return *u.ManagerID, true
}

// NewRegistry wires the directory relations to SQL loaders over src.
func NewRegistry(src sqlload.Source, tables Tables) *Registry {
	r := &Registry{
		Users:     eager.NewType("User", func(rec UserRecord) *User { return &User{Record: rec} }),
		Countries: eager.NewType("Country", func(rec CountryRecord) *Country { return &Country{Record: rec} }),
		Companies: eager.NewType("Company", func(rec CompanyRecord) *Company { return &Company{Record: rec} }),
		src:       src,
		tables:    tables,
	}

	usersByID := sqlload.ByColumn[int64](src, tables.Users, "id", nil)
	countriesByID := sqlload.ByColumn[int64](src, tables.Countries, "id", nil)

	r.Users.Register(
		eager.HasOneBy(eager.KeyedRelation[UserRecord, *Country, CountryRecord, int64]{
			Field:     "country",
			Child:     r.Countries,
			ParentKey: eager.Key(func(u UserRecord) int64 { return u.CountryID }),
			ChildKey:  eager.Key(countryID),
			Load:      countriesByID,
		}, func(u *User) *eager.HasOne[*Country] { return &u.country }),
		eager.OptionHasOneBy(eager.KeyedRelation[UserRecord, *User, UserRecord, int64]{
			Field:     "manager",
			Child:     r.Users,
			ParentKey: userManagerID,
			ChildKey:  eager.Key(userID),
			Load:      usersByID,
		}, func(u *User) *eager.OptionHasOne[*User] { return &u.manager }),
		eager.HasManyBy(eager.KeyedRelation[UserRecord, *User, UserRecord, int64]{
			Field:     "reports",
			Child:     r.Users,
			ParentKey: eager.Key(userID),
			ChildKey:  userManagerID,
			Load:      sqlload.ByColumn[int64](src, tables.Users, "manager_id", nil),
		}, func(u *User) *eager.HasMany[*User] { return &u.reports }),
		eager.HasManyThroughBy(eager.ThroughRelation[UserRecord, *Company, CompanyRecord, EmploymentRecord, int64, int64]{
			Field:         "companies",
			Child:         r.Companies,
			ParentKey:     eager.Key(userID),
			LoadJoins:     sqlload.ByColumn[int64](src, tables.Employments, "user_id", nil),
			JoinParentKey: eager.Key(func(e EmploymentRecord) int64 { return e.UserID }),
			JoinChildKey:  eager.Key(func(e EmploymentRecord) int64 { return e.CompanyID }),
			ChildKey:      eager.Key(companyID),
			LoadChildren:  sqlload.ByColumn[int64](src, tables.Companies, "id", sqlload.Contains("name", "nameLike")),
		}, func(u *User) *eager.HasManyThrough[*Company] { return &u.companies }),
	)

	r.Countries.Register(
		eager.HasManyBy(eager.KeyedRelation[CountryRecord, *User, UserRecord, int64]{
			Field:     "users",
			Child:     r.Users,
			ParentKey: eager.Key(countryID),
			ChildKey:  eager.Key(func(u UserRecord) int64 { return u.CountryID }),
			Load:      sqlload.ByColumn[int64](src, tables.Users, "country_id", sqlload.WhenTrue("is_admin", "onlyAdmins")),
		}, func(c *Country) *eager.HasMany[*User] { return &c.users }),
	)

	r.Companies.Register(
		eager.HasOneBy(eager.KeyedRelation[CompanyRecord, *Country, CountryRecord, int64]{
			Field:     "country",
			Child:     r.Countries,
			ParentKey: eager.Key(func(c CompanyRecord) int64 { return c.CountryID }),
			ChildKey:  eager.Key(countryID),
			Load:      countriesByID,
		}, func(c *Company) *eager.HasOne[*Country] { return &c.country }),
	)
	return r
}

// UsersByID loads user records in id order. No ids loads every user.
func (r *Registry) UsersByID(ctx context.Context, ids []int64) ([]UserRecord, error) {
	if ids == nil {
		return sqlload.Select(ctx, r.src, r.tables.Users, nil)
	}
	return sqlload.ByColumn[int64](r.src, r.tables.Users, "id", nil)(ctx, eager.Unique(ids), nil)
}

// AllCountries loads every country record.
func (r *Registry) AllCountries(ctx context.Context) ([]CountryRecord, error) {
	return sqlload.Select(ctx, r.src, r.tables.Countries, nil)
}

// CompaniesNamed loads the companies whose name contains pattern; an empty
// pattern loads them all.
func (r *Registry) CompaniesNamed(ctx context.Context, pattern string) ([]CompanyRecord, error) {
	where, err := sqlload.Contains("name", "nameLike")(eager.Args{"nameLike": pattern})
	if err != nil {
		return nil, err
	}
	return sqlload.Select[CompanyRecord](ctx, r.src, r.tables.Companies, where)
}
