// Package directory is a small people directory served over GraphQL: users
// belong to a country, may report to a manager and work for companies. Its
// relations are eager loaded level by level from SQL.
package directory

import (
	"database/sql"
	"strings"
	"unicode"

	"graphql-eager/internal/sqlload"

	"github.com/jinzhu/inflection"
)

// UserRecord is a row of the users table.
type UserRecord struct {
	ID        int64
	Name      string
	CountryID int64
	ManagerID *int64
	IsAdmin   bool
}

// CountryRecord is a row of the countries table.
type CountryRecord struct {
	ID   int64
	Name string
}

// CompanyRecord is a row of the companies table.
type CompanyRecord struct {
	ID        int64
	Name      string
	CountryID int64
}

// EmploymentRecord links a user to a company.
type EmploymentRecord struct {
	UserID    int64
	CompanyID int64
}

// Tables maps the directory records to SQL tables.
type Tables struct {
	Users       sqlload.Table[UserRecord]
	Countries   sqlload.Table[CountryRecord]
	Companies   sqlload.Table[CompanyRecord]
	Employments sqlload.Table[EmploymentRecord]
}

// TableName derives a table name from a GraphQL type name: snake case,
// pluralized. An optional database qualifies the name.
func TableName(database, typeName string) string {
	name := inflection.Plural(snakeCase(typeName))
	if database == "" {
		return name
	}
	return database + "." + name
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewTables returns the table mappings, qualified by database when set.
func NewTables(database string) Tables {
	return Tables{
		Users: sqlload.Table[UserRecord]{
			Name:    TableName(database, "User"),
			Columns: []string{"id", "name", "country_id", "manager_id", "is_admin"},
			OrderBy: []string{"id"},
			Scan: func(row sqlload.Scanner) (UserRecord, error) {
				var (
					r       UserRecord
					manager sql.NullInt64
				)
				if err := row.Scan(&r.ID, &r.Name, &r.CountryID, &manager, &r.IsAdmin); err != nil {
					return UserRecord{}, err
				}
				if manager.Valid {
					id := manager.Int64
					r.ManagerID = &id
				}
				return r, nil
			},
		},
		Countries: sqlload.Table[CountryRecord]{
			Name:    TableName(database, "Country"),
			Columns: []string{"id", "name"},
			OrderBy: []string{"id"},
			Scan: func(row sqlload.Scanner) (CountryRecord, error) {
				var r CountryRecord
				err := row.Scan(&r.ID, &r.Name)
				return r, err
			},
		},
		Companies: sqlload.Table[CompanyRecord]{
			Name:    TableName(database, "Company"),
			Columns: []string{"id", "name", "country_id"},
			OrderBy: []string{"name", "id"},
			Scan: func(row sqlload.Scanner) (CompanyRecord, error) {
				var r CompanyRecord
				err := row.Scan(&r.ID, &r.Name, &r.CountryID)
				return r, err
			},
		},
		Employments: sqlload.Table[EmploymentRecord]{
			Name:    TableName(database, "Employment"),
			Columns: []string{"user_id", "company_id"},
			OrderBy: []string{"user_id", "company_id"},
			Scan: func(row sqlload.Scanner) (EmploymentRecord, error) {
				var r EmploymentRecord
				err := row.Scan(&r.UserID, &r.CompanyID)
				return r, err
			},
		},
	}
}
