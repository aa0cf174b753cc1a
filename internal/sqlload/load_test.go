package sqlload

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/eager"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type country struct {
	ID   int64
	Name string
}

var countries = Table[country]{
	Name:    "countries",
	Columns: []string{"id", "name"},
	OrderBy: []string{"id"},
	Scan: func(row Scanner) (country, error) {
		var c country
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	},
}

func newMockSource(t *testing.T, maxIn int) (Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Source{Executor: dbexec.NewStandardExecutor(db), MaxInClause: maxIn}, mock
}

func TestPlanIn(t *testing.T) {
	planned, err := PlanIn(countries, "id", []any{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id`, `name` FROM `countries` WHERE `id` IN (?,?) ORDER BY `id`", planned.SQL)
	assert.Equal(t, []any{1, 2}, planned.Args)

	filter, err := Contains("name", "nameLike")(eager.Args{"nameLike": "Ac"})
	require.NoError(t, err)
	planned, err = PlanIn(countries, "id", []any{3}, filter)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id`, `name` FROM `countries` WHERE `id` IN (?) AND `name` LIKE ? ORDER BY `id`", planned.SQL)
	assert.Equal(t, []any{3, "%Ac%"}, planned.Args)

	planned, err = PlanIn(countries, "id", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, planned.SQL)
}

func TestPlanSelect(t *testing.T) {
	table := countries
	table.Name = "app.countries"
	table.OrderBy = []string{"name desc", "id"}

	planned, err := PlanSelect(table, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id`, `name` FROM `app`.`countries` ORDER BY `name` DESC, `id`", planned.SQL)
	assert.Empty(t, planned.Args)

	_, err = PlanSelect(Table[country]{}, nil)
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	cond, err := WhenTrue("is_admin", "onlyAdmins")(eager.Args{"onlyAdmins": false})
	require.NoError(t, err)
	assert.Nil(t, cond)

	cond, err = WhenTrue("is_admin", "onlyAdmins")(eager.Args{"onlyAdmins": true})
	require.NoError(t, err)
	sql, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "`is_admin` = ?", sql)
	assert.Equal(t, []any{true}, args)

	_, err = WhenTrue("is_admin", "onlyAdmins")(eager.Args{"onlyAdmins": "yes"})
	assert.Error(t, err)

	cond, err = Contains("name", "nameLike")(eager.Args{"nameLike": ""})
	require.NoError(t, err)
	assert.Nil(t, cond)

	_, err = Contains("name", "nameLike")(eager.Args{"nameLike": 3})
	assert.Error(t, err)

	both := AllOf(WhenTrue("is_admin", "onlyAdmins"), Contains("name", "nameLike"))
	cond, err = both(eager.Args{"onlyAdmins": true, "nameLike": "a"})
	require.NoError(t, err)
	sql, args, err = cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(`is_admin` = ? AND `name` LIKE ?)", sql)
	assert.Equal(t, []any{true, "%a%"}, args)

	cond, err = both(nil)
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestChunkValues(t *testing.T) {
	assert.Nil(t, chunkValues(nil, 2))
	assert.Equal(t, [][]any{{1, 2, 3}}, chunkValues([]any{1, 2, 3}, 0))
	assert.Equal(t, [][]any{{1, 2}, {3}}, chunkValues([]any{1, 2, 3}, 2))
}

func TestByColumn(t *testing.T) {
	t.Run("one query per batch", func(t *testing.T) {
		src, mock := newMockSource(t, 0)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name` FROM `countries` WHERE `id` IN (?,?) ORDER BY `id`")).
			WithArgs(int64(10), int64(20)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(10, "Atlantis").AddRow(20, "Borduria"))

		load := ByColumn[int64](src, countries, "id", nil)
		got, err := load(context.Background(), []int64{10, 20}, nil)
		require.NoError(t, err)
		assert.Equal(t, []country{{10, "Atlantis"}, {20, "Borduria"}}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chunks large key lists", func(t *testing.T) {
		src, mock := newMockSource(t, 2)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE `id` IN (?,?)")).
			WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a").AddRow(2, "b"))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE `id` IN (?)")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "c"))

		load := ByColumn[int64](src, countries, "id", nil)
		got, err := load(context.Background(), []int64{1, 2, 3}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no keys runs no query", func(t *testing.T) {
		src, mock := newMockSource(t, 0)
		got, err := ByColumn[int64](src, countries, "id", nil)(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter uses relation arguments", func(t *testing.T) {
		src, mock := newMockSource(t, 0)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE `id` IN (?) AND `name` LIKE ?")).
			WithArgs(int64(1), "%tl%").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Atlantis"))

		load := ByColumn[int64](src, countries, "id", Contains("name", "nameLike"))
		got, err := load(context.Background(), []int64{1}, eager.Args{"nameLike": "tl"})
		require.NoError(t, err)
		assert.Equal(t, []country{{1, "Atlantis"}}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query errors are returned", func(t *testing.T) {
		src, mock := newMockSource(t, 0)
		boom := errors.New("boom")
		mock.ExpectQuery("SELECT").WillReturnError(boom)

		_, err := ByColumn[int64](src, countries, "id", nil)(context.Background(), []int64{1}, nil)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "query countries")
	})

	t.Run("scan errors are returned", func(t *testing.T) {
		src, mock := newMockSource(t, 0)
		mock.ExpectQuery("SELECT").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("not-a-number", "x"))

		_, err := ByColumn[int64](src, countries, "id", nil)(context.Background(), []int64{1}, nil)
		assert.ErrorContains(t, err, "scan countries")
	})

	t.Run("context executor takes precedence", func(t *testing.T) {
		src := Source{}
		_, err := ByColumn[int64](src, countries, "id", nil)(context.Background(), []int64{1}, nil)
		assert.ErrorContains(t, err, "no query executor")

		scoped, mock := newMockSource(t, 0)
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a"))
		ctx := dbexec.WithExecutor(context.Background(), scoped.Executor)
		got, err := ByColumn[int64](src, countries, "id", nil)(ctx, []int64{1}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestSelect(t *testing.T) {
	src, mock := newMockSource(t, 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name` FROM `countries` ORDER BY `id`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a").AddRow(2, "b"))

	got, err := Select(context.Background(), src, countries, nil)
	require.NoError(t, err)
	assert.Equal(t, []country{{1, "a"}, {2, "b"}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
