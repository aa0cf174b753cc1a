package directory

import (
	"context"
	"fmt"

	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// Migrate creates the directory tables when they do not exist. The DDL is
// accepted by both MySQL/TiDB and SQLite.
func Migrate(ctx context.Context, exec dbexec.QueryExecutor, tables Tables) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`, sqlutil.QuoteQualified(tables.Countries.Name)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			country_id BIGINT NOT NULL,
			manager_id BIGINT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE
		)`, sqlutil.QuoteQualified(tables.Users.Name)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			country_id BIGINT NOT NULL
		)`, sqlutil.QuoteQualified(tables.Companies.Name)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id BIGINT NOT NULL,
			company_id BIGINT NOT NULL,
			PRIMARY KEY (user_id, company_id)
		)`, sqlutil.QuoteQualified(tables.Employments.Name)),
	}
	for _, stmt := range statements {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate directory: %w", err)
		}
	}
	return nil
}

// Dataset is a set of directory records to insert.
type Dataset struct {
	Countries   []CountryRecord
	Users       []UserRecord
	Companies   []CompanyRecord
	Employments []EmploymentRecord
}

// Seed inserts the dataset, one multi-row INSERT per table.
func Seed(ctx context.Context, exec dbexec.QueryExecutor, tables Tables, data Dataset) error {
	inserts := []sq.InsertBuilder{}

	if len(data.Countries) > 0 {
		b := insertInto(tables.Countries.Name, tables.Countries.Columns)
		for _, c := range data.Countries {
			b = b.Values(c.ID, c.Name)
		}
		inserts = append(inserts, b)
	}
	if len(data.Users) > 0 {
		b := insertInto(tables.Users.Name, tables.Users.Columns)
		for _, u := range data.Users {
			var manager any
			if u.ManagerID != nil {
				manager = *u.ManagerID
			}
			b = b.Values(u.ID, u.Name, u.CountryID, manager, u.IsAdmin)
		}
		inserts = append(inserts, b)
	}
	if len(data.Companies) > 0 {
		b := insertInto(tables.Companies.Name, tables.Companies.Columns)
		for _, c := range data.Companies {
			b = b.Values(c.ID, c.Name, c.CountryID)
		}
		inserts = append(inserts, b)
	}
	if len(data.Employments) > 0 {
		b := insertInto(tables.Employments.Name, tables.Employments.Columns)
		for _, e := range data.Employments {
			b = b.Values(e.UserID, e.CompanyID)
		}
		inserts = append(inserts, b)
	}

	for _, b := range inserts {
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("seed directory: %w", err)
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed directory: %w", err)
		}
	}
	return nil
}

func insertInto(table string, columns []string) sq.InsertBuilder {
	return sq.Insert(sqlutil.QuoteQualified(table)).
		Columns(sqlutil.QuoteColumns(columns)...).
		PlaceholderFormat(sq.Question)
}

func ptr(v int64) *int64 { return &v }

// SampleDataset is a small dataset for local runs and tests.
func SampleDataset() Dataset {
	return Dataset{
		Countries: []CountryRecord{
			{ID: 1, Name: "Atlantis"},
			{ID: 2, Name: "Borduria"},
			{ID: 3, Name: "Cascadia"},
		},
		Users: []UserRecord{
			{ID: 1, Name: "Ada", CountryID: 1, IsAdmin: true},
			{ID: 2, Name: "Brook", CountryID: 1, ManagerID: ptr(1)},
			{ID: 3, Name: "Cyd", CountryID: 2, ManagerID: ptr(1)},
			{ID: 4, Name: "Dev", CountryID: 2, ManagerID: ptr(3), IsAdmin: true},
			{ID: 5, Name: "Eli", CountryID: 1, ManagerID: ptr(3)},
		},
		Companies: []CompanyRecord{
			{ID: 10, Name: "Acme", CountryID: 1},
			{ID: 11, Name: "Globex", CountryID: 2},
			{ID: 12, Name: "Initech", CountryID: 2},
		},
		Employments: []EmploymentRecord{
			{UserID: 1, CompanyID: 10},
			{UserID: 1, CompanyID: 11},
			{UserID: 2, CompanyID: 10},
			{UserID: 3, CompanyID: 12},
			{UserID: 4, CompanyID: 11},
			{UserID: 4, CompanyID: 12},
		},
	}
}
