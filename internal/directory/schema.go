package directory

import (
	"fmt"

	"graphql-eager/internal/eager"
	"graphql-eager/internal/trail"

	"github.com/graphql-go/graphql"
)

// NewSchema builds the directory GraphQL schema. Root fields load their
// records and eager load the selected relations before returning; nested
// fields only read what the loader already paired.
func NewSchema(reg *Registry) (graphql.Schema, error) {
	b := &schemaBuilder{reg: reg}
	b.build()

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"users": &graphql.Field{
					Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.user))),
					Description: "Users by id, or every user when ids is omitted.",
					Args: graphql.FieldConfigArgument{
						"ids": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
					},
					Resolve: b.resolveUsers,
				},
				"user": &graphql.Field{
					Type: b.user,
					Args: graphql.FieldConfigArgument{
						"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					},
					Resolve: b.resolveUser,
				},
				"countries": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.country))),
					Resolve: b.resolveCountries,
				},
				"companies": &graphql.Field{
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.company))),
					Args: graphql.FieldConfigArgument{
						"nameLike": &graphql.ArgumentConfig{Type: graphql.String},
					},
					Resolve: b.resolveCompanies,
				},
				"located": &graphql.Field{
					Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.located))),
					Description: "Every user followed by every company.",
					Resolve:     b.resolveLocated,
				},
			},
		}),
	})
}

type schemaBuilder struct {
	reg     *Registry
	located *graphql.Interface
	user    *graphql.Object
	country *graphql.Object
	company *graphql.Object
}

func (b *schemaBuilder) build() {
	b.located = graphql.NewInterface(graphql.InterfaceConfig{
		Name:        "Located",
		Description: "A node that belongs to a country.",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"country": &graphql.Field{Type: graphql.NewNonNull(b.country)},
			}
		}),
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			switch p.Value.(type) {
			case *User:
				return b.user
			case *Company:
				return b.company
			}
			return nil
		},
	})

	b.user = graphql.NewObject(graphql.ObjectConfig{
		Name:       b.reg.Users.Name(),
		Interfaces: []*graphql.Interface{b.located},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":      scalar(graphql.Int, func(u *User) any { return u.Record.ID }),
				"name":    scalar(graphql.String, func(u *User) any { return u.Record.Name }),
				"isAdmin": scalar(graphql.Boolean, func(u *User) any { return u.Record.IsAdmin }),
				"country": {
					Type: graphql.NewNonNull(b.country),
					Resolve: source(func(u *User, _ graphql.ResolveParams) (any, error) {
						return u.Country()
					}),
				},
				"manager": {
					Type: b.user,
					Resolve: source(func(u *User, _ graphql.ResolveParams) (any, error) {
						if manager, ok := u.Manager(); ok {
							return manager, nil
						}
						return nil, nil
					}),
				},
				"reports": {
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.user))),
					Resolve: source(func(u *User, _ graphql.ResolveParams) (any, error) {
						return u.Reports(), nil
					}),
				},
				"companies": {
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.company))),
					Args: graphql.FieldConfigArgument{
						"nameLike": &graphql.ArgumentConfig{Type: graphql.String},
					},
					Resolve: source(func(u *User, _ graphql.ResolveParams) (any, error) {
						return u.Companies(), nil
					}),
				},
			}
		}),
	})

	b.country = graphql.NewObject(graphql.ObjectConfig{
		Name: b.reg.Countries.Name(),
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":   scalar(graphql.Int, func(c *Country) any { return c.Record.ID }),
				"name": scalar(graphql.String, func(c *Country) any { return c.Record.Name }),
				"users": {
					Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(b.user))),
					Args: graphql.FieldConfigArgument{
						"onlyAdmins": &graphql.ArgumentConfig{Type: graphql.Boolean},
					},
					Resolve: source(func(c *Country, _ graphql.ResolveParams) (any, error) {
						return c.Users(), nil
					}),
				},
			}
		}),
	})

	b.company = graphql.NewObject(graphql.ObjectConfig{
		Name:       b.reg.Companies.Name(),
		Interfaces: []*graphql.Interface{b.located},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":   scalar(graphql.Int, func(c *Company) any { return c.Record.ID }),
				"name": scalar(graphql.String, func(c *Company) any { return c.Record.Name }),
				"country": {
					Type: graphql.NewNonNull(b.country),
					Resolve: source(func(c *Company, _ graphql.ResolveParams) (any, error) {
						return c.Country()
					}),
				},
			}
		}),
	})
}

// source adapts a resolver over a typed parent node.
func source[N any](resolve func(N, graphql.ResolveParams) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		node, ok := p.Source.(N)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected parent %T", p.Info.FieldName, p.Source)
		}
		return resolve(node, p)
	}
}

func scalar[N any](typ graphql.Output, value func(N) any) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(typ),
		Resolve: source(func(n N, _ graphql.ResolveParams) (any, error) {
			return value(n), nil
		}),
	}
}

// load eager loads records along the trail below the resolving field. A trail
// that selects one relation with two argument sets is rejected, since both
// selections would read the same association.
func load[N, M any](p graphql.ResolveParams, typ *eager.Type[N, M], records []M) ([]N, error) {
	tr, err := trail.FromResolveInfo(p.Info)
	if err != nil {
		return nil, err
	}
	return typ.Load(p.Context, records, tr)
}

// loadAs is load for a field of abstract type: only the fragments that apply
// to typ's concrete type contribute to the trail.
func loadAs[N, M any](p graphql.ResolveParams, typ *eager.Type[N, M], records []M) ([]N, error) {
	tr, err := trail.ForType(p.Info, typ.Name())
	if err != nil {
		return nil, err
	}
	return typ.Load(p.Context, records, tr)
}

func (b *schemaBuilder) resolveUsers(p graphql.ResolveParams) (interface{}, error) {
	var args struct {
		IDs []int64 `arg:"ids"`
	}
	if err := eager.Args(p.Args).Decode(&args); err != nil {
		return nil, err
	}
	if p.Args["ids"] != nil && args.IDs == nil {
		args.IDs = []int64{}
	}
	records, err := b.reg.UsersByID(p.Context, args.IDs)
	if err != nil {
		return nil, err
	}
	return load(p, b.reg.Users, records)
}

func (b *schemaBuilder) resolveUser(p graphql.ResolveParams) (interface{}, error) {
	var args struct {
		ID int64 `arg:"id"`
	}
	if err := eager.Args(p.Args).Decode(&args); err != nil {
		return nil, err
	}
	records, err := b.reg.UsersByID(p.Context, []int64{args.ID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	users, err := load(p, b.reg.Users, records[:1])
	if err != nil {
		return nil, err
	}
	return users[0], nil
}

func (b *schemaBuilder) resolveCountries(p graphql.ResolveParams) (interface{}, error) {
	records, err := b.reg.AllCountries(p.Context)
	if err != nil {
		return nil, err
	}
	return load(p, b.reg.Countries, records)
}

func (b *schemaBuilder) resolveCompanies(p graphql.ResolveParams) (interface{}, error) {
	var args struct {
		NameLike string `arg:"nameLike"`
	}
	if err := eager.Args(p.Args).Decode(&args); err != nil {
		return nil, err
	}
	records, err := b.reg.CompaniesNamed(p.Context, args.NameLike)
	if err != nil {
		return nil, err
	}
	return load(p, b.reg.Companies, records)
}

func (b *schemaBuilder) resolveLocated(p graphql.ResolveParams) (interface{}, error) {
	userRecords, err := b.reg.UsersByID(p.Context, nil)
	if err != nil {
		return nil, err
	}
	companyRecords, err := b.reg.CompaniesNamed(p.Context, "")
	if err != nil {
		return nil, err
	}

	users, err := loadAs(p, b.reg.Users, userRecords)
	if err != nil {
		return nil, err
	}
	companies, err := loadAs(p, b.reg.Companies, companyRecords)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(users)+len(companies))
	for _, u := range users {
		out = append(out, u)
	}
	for _, c := range companies {
		out = append(out, c)
	}
	return out, nil
}
