package query_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/query"
)

var tourColumns = []string{
	"id", "name", "slug", "duration_days", "max_group_size", "difficulty",
	"ratings_average", "ratings_quantity", "price_cents", "summary",
	"description", "image_cover", "created_at",
}

func mustParse(t *testing.T, rawQuery string) query.Descriptor {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	d, err := query.Parse(values)
	require.NoError(t, err)
	return d
}

func TestParse_RangeSortAndPagination(t *testing.T) {
	d := mustParse(t, "price_cents[gte]=100&price_cents[lte]=500&sort=-price_cents,name&page=2&limit=5")

	require.Len(t, d.Conds, 2)
	assert.Equal(t, query.Condition{Field: "price_cents", Op: query.OpGte, Values: []string{"100"}}, d.Conds[0])
	assert.Equal(t, query.Condition{Field: "price_cents", Op: query.OpLte, Values: []string{"500"}}, d.Conds[1])

	assert.Equal(t, []query.SortKey{
		{Field: "price_cents", Desc: true},
		{Field: "name"},
		{Field: "id"},
	}, d.Sort)

	assert.Equal(t, 2, d.Page)
	assert.Equal(t, 5, d.Limit)
	assert.Equal(t, 5, d.Offset())

	where, args, err := d.Where(tourColumns)
	require.NoError(t, err)
	assert.Equal(t, "price_cents >= ? AND price_cents <= ?", where)
	assert.Equal(t, []any{"100", "500"}, args)

	order, err := d.Order(tourColumns)
	require.NoError(t, err)
	assert.Equal(t, "price_cents DESC, name ASC, id ASC", order)
}

func TestParse_Deterministic(t *testing.T) {
	raw := "difficulty=easy&duration_days[gte]=5&name=trek&sort=name"
	first := mustParse(t, raw)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, mustParse(t, raw))
	}
}

func TestParse_EqualityAndRepeatedKeys(t *testing.T) {
	d := mustParse(t, "difficulty=easy&duration_days=5&duration_days=9")

	require.Len(t, d.Conds, 2)
	assert.Equal(t, query.Condition{Field: "difficulty", Op: query.OpEq, Values: []string{"easy"}}, d.Conds[0])
	assert.Equal(t, query.Condition{Field: "duration_days", Op: query.OpIn, Values: []string{"5", "9"}}, d.Conds[1])

	where, args, err := d.Where(tourColumns)
	require.NoError(t, err)
	assert.Equal(t, "difficulty = ? AND duration_days IN (?,?)", where)
	assert.Equal(t, []any{"easy", "5", "9"}, args)
}

func TestParse_OperatorWhitelist(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
	}{
		{"unknown bracket operator", "price_cents[regex]=1"},
		{"mongo style operator", "price_cents[$gt]=1"},
		{"sql in field name", "price_cents%3B--=1"},
		{"nested brackets", "price_cents[gte][lt]=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)
			_, err = query.Parse(values)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.Validation))
		})
	}
}

func TestParse_UnknownColumnRejectedAtRender(t *testing.T) {
	d := mustParse(t, "password_hash=x")
	_, _, err := d.Where(tourColumns)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestParse_DefaultSortAndPagination(t *testing.T) {
	d := mustParse(t, "")

	assert.Equal(t, []query.SortKey{{Field: "created_at", Desc: true}, {Field: "id"}}, d.Sort)
	assert.Equal(t, 1, d.Page)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, 0, d.Offset())

	where, args, err := d.Where(tourColumns)
	require.NoError(t, err)
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestParse_InvalidPagination(t *testing.T) {
	for _, raw := range []string{"page=0&limit=-3", "page=abc&limit=xyz", "page=&limit="} {
		d := mustParse(t, raw)
		assert.Equal(t, 1, d.Page, raw)
		assert.Equal(t, 10, d.Limit, raw)
	}
}

func TestColumns_IncludeList(t *testing.T) {
	d := mustParse(t, "fields=name,price_cents,difficulty")
	cols, err := d.Columns(tourColumns, []string{"description"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price_cents", "difficulty"}, cols)
}

func TestColumns_DefaultHidesSensitive(t *testing.T) {
	userColumns := []string{"id", "name", "email", "password_hash", "role", "created_at"}
	d := mustParse(t, "")
	cols, err := d.Columns(userColumns, []string{"password_hash"})
	require.NoError(t, err)
	assert.NotContains(t, cols, "password_hash")
	assert.Contains(t, cols, "email")
}

func TestColumns_ExcludeList(t *testing.T) {
	d := mustParse(t, "fields=-description,-summary")
	cols, err := d.Columns(tourColumns, nil)
	require.NoError(t, err)
	assert.NotContains(t, cols, "description")
	assert.NotContains(t, cols, "summary")
	assert.Contains(t, cols, "name")
}

func TestColumns_MixedModesRejected(t *testing.T) {
	values, err := url.ParseQuery("fields=name,-description")
	require.NoError(t, err)
	_, err = query.Parse(values)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestColumns_UnknownFieldRejected(t *testing.T) {
	d := mustParse(t, "fields=name,nonexistent")
	_, err := d.Columns(tourColumns, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}
