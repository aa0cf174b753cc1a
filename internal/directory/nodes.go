package directory

import "graphql-eager/internal/eager"

// User is a user node. Its associations are filled by the eager loader.
type User struct {
	Record UserRecord

	country   eager.HasOne[*Country]
	manager   eager.OptionHasOne[*User]
	reports   eager.HasMany[*User]
	companies eager.HasManyThrough[*Company]
}

// Country is a country node.
type Country struct {
	Record CountryRecord

	users eager.HasMany[*User]
}

// Company is a company node.
type Company struct {
	Record CompanyRecord

	country eager.HasOne[*Country]
}

// Country returns the user's country.
func (u *User) Country() (*Country, error) { return u.country.TryUnwrap() }

// Manager returns the user's manager, if any.
func (u *User) Manager() (*User, bool) { return u.manager.TryUnwrap() }

// Reports returns the users managed by u.
func (u *User) Reports() []*User { return u.reports.TryUnwrap() }

// Companies returns the companies u works for.
func (u *User) Companies() []*Company { return u.companies.TryUnwrap() }

// Users returns the users living in c.
func (c *Country) Users() []*User { return c.users.TryUnwrap() }

// Country returns the company's country.
func (c *Company) Country() (*Country, error) { return c.country.TryUnwrap() }
