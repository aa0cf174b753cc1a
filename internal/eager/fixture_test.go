package eager

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

type userRecord struct {
	ID        int
	CountryID int
	ParentID  int
	ManagerID *int
	Admin     bool
}

type countryRecord struct {
	ID int
}

type companyRecord struct {
	ID   int
	Name string
}

type employmentRecord struct {
	UserID    int
	CompanyID int
}

type user struct {
	record    userRecord
	country   HasOne[*country]
	parent    HasOne[*user]
	manager   OptionHasOne[*user]
	reports   HasMany[*user]
	companies HasManyThrough[*company]
}

type country struct {
	record countryRecord
	users  HasMany[*user]
}

type company struct {
	record companyRecord
}

type countryUsersArgs struct {
	OnlyAdmins bool
}

type companiesArgs struct {
	NameLike string `arg:"nameLike"`
}

// store is an in-memory data source that records every loader call.
type store struct {
	mu          sync.Mutex
	users       []userRecord
	countries   []countryRecord
	companies   []companyRecord
	employments []employmentRecord
	calls       map[string][][]int
	fail        map[string]error
}

func newStore() *store {
	return &store{calls: make(map[string][][]int), fail: make(map[string]error)}
}

func (s *store) record(name string, keys []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name] = append(s.calls[name], slices.Clone(keys))
	return s.fail[name]
}

func (s *store) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[name])
}

func (s *store) keys(name string) [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *store) countriesByID(_ context.Context, ids []int, _ Args) ([]countryRecord, error) {
	if err := s.record("countries", ids); err != nil {
		return nil, err
	}
	var out []countryRecord
	for _, c := range s.countries {
		if slices.Contains(ids, c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *store) usersByID(_ context.Context, ids []int, _ Args) ([]userRecord, error) {
	if err := s.record("users", ids); err != nil {
		return nil, err
	}
	var out []userRecord
	for _, u := range s.users {
		if slices.Contains(ids, u.ID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *store) usersByCountry(_ context.Context, ids []int, args Args) ([]userRecord, error) {
	if err := s.record("users_by_country", ids); err != nil {
		return nil, err
	}
	var filter countryUsersArgs
	if err := args.Decode(&filter); err != nil {
		return nil, err
	}
	var out []userRecord
	for _, u := range s.users {
		if slices.Contains(ids, u.CountryID) && (!filter.OnlyAdmins || u.Admin) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *store) usersByManager(_ context.Context, ids []int, _ Args) ([]userRecord, error) {
	if err := s.record("users_by_manager", ids); err != nil {
		return nil, err
	}
	var out []userRecord
	for _, u := range s.users {
		if u.ManagerID != nil && slices.Contains(ids, *u.ManagerID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *store) employmentsByUser(_ context.Context, ids []int, _ Args) ([]employmentRecord, error) {
	if err := s.record("employments", ids); err != nil {
		return nil, err
	}
	var out []employmentRecord
	for _, e := range s.employments {
		if slices.Contains(ids, e.UserID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *store) companiesByID(_ context.Context, ids []int, args Args) ([]companyRecord, error) {
	if err := s.record("companies", ids); err != nil {
		return nil, err
	}
	var filter companiesArgs
	if err := args.Decode(&filter); err != nil {
		return nil, err
	}
	var out []companyRecord
	for _, c := range s.companies {
		if slices.Contains(ids, c.ID) && strings.Contains(c.Name, filter.NameLike) {
			out = append(out, c)
		}
	}
	return out, nil
}

type schema struct {
	users     *Type[*user, userRecord]
	countries *Type[*country, countryRecord]
	companies *Type[*company, companyRecord]
}

func newSchema(s *store) *schema {
	sc := &schema{
		users:     NewType("User", func(r userRecord) *user { return &user{record: r} }),
		countries: NewType("Country", func(r countryRecord) *country { return &country{record: r} }),
		companies: NewType("Company", func(r companyRecord) *company { return &company{record: r} }),
	}
	userID := Key(func(u userRecord) int { return u.ID })

	sc.users.Register(
		HasOneBy(KeyedRelation[userRecord, *country, countryRecord, int]{
			Field:     "country",
			Child:     sc.countries,
			ParentKey: Key(func(u userRecord) int { return u.CountryID }),
			ChildKey:  Key(func(c countryRecord) int { return c.ID }),
			Load:      s.countriesByID,
		}, func(u *user) *HasOne[*country] { return &u.country }),
		HasOneBy(KeyedRelation[userRecord, *user, userRecord, int]{
			Field:     "parent",
			Child:     sc.users,
			ParentKey: Key(func(u userRecord) int { return u.ParentID }),
			ChildKey:  userID,
			Load:      s.usersByID,
		}, func(u *user) *HasOne[*user] { return &u.parent }),
		OptionHasOneBy(KeyedRelation[userRecord, *user, userRecord, int]{
			Field: "manager",
			Child: sc.users,
			ParentKey: func(u userRecord) (int, bool) {
				if u.ManagerID == nil {
					return 0, false
				}
				return *u.ManagerID, true
			},
			ChildKey: userID,
			Load:     s.usersByID,
		}, func(u *user) *OptionHasOne[*user] { return &u.manager }),
		HasManyBy(KeyedRelation[userRecord, *user, userRecord, int]{
			Field:     "reports",
			Child:     sc.users,
			ParentKey: userID,
			ChildKey: func(u userRecord) (int, bool) {
				if u.ManagerID == nil {
					return 0, false
				}
				return *u.ManagerID, true
			},
			Load: s.usersByManager,
		}, func(u *user) *HasMany[*user] { return &u.reports }),
		HasManyThroughBy(ThroughRelation[userRecord, *company, companyRecord, employmentRecord, int, int]{
			Field:         "companies",
			Child:         sc.companies,
			ParentKey:     userID,
			LoadJoins:     s.employmentsByUser,
			JoinParentKey: Key(func(e employmentRecord) int { return e.UserID }),
			JoinChildKey:  Key(func(e employmentRecord) int { return e.CompanyID }),
			ChildKey:      Key(func(c companyRecord) int { return c.ID }),
			LoadChildren:  s.companiesByID,
		}, func(u *user) *HasManyThrough[*company] { return &u.companies }),
	)

	sc.countries.Register(
		HasManyBy(KeyedRelation[countryRecord, *user, userRecord, int]{
			Field:     "users",
			Child:     sc.users,
			ParentKey: Key(func(c countryRecord) int { return c.ID }),
			ChildKey:  Key(func(u userRecord) int { return u.CountryID }),
			Load:      s.usersByCountry,
		}, func(c *country) *HasMany[*user] { return &c.users }),
	)
	return sc
}

// testTrail is a static Trail for engine tests.
type testTrail struct {
	args   Args
	fields map[string]*testTrail
}

type fields map[string]*testTrail

func sel(f fields) *testTrail {
	return &testTrail{fields: f}
}

func selArgs(args Args, f fields) *testTrail {
	return &testTrail{args: args, fields: f}
}

func leaf() *testTrail {
	return &testTrail{}
}

func (t *testTrail) Walk(field string) (Trail, bool) {
	sub, ok := t.fields[field]
	if !ok {
		return nil, false
	}
	return sub, true
}

func (t *testTrail) Args() Args { return t.args }

func intPtr(v int) *int { return &v }

var errStoreDown = errors.New("store unavailable")

func userIDs(users []*user) []int {
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.record.ID
	}
	return ids
}

func companyIDs(companies []*company) []int {
	ids := make([]int, len(companies))
	for i, c := range companies {
		ids[i] = c.record.ID
	}
	return ids
}
