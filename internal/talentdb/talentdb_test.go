package talentdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "name", "born_date_yyyy", "born_date_mm", "born_date_dd", "gender_cd", "is_group", "memo_cm", "other_blog_url"}

func fixedClock() time.Time {
	return time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
}

type recordingObserver struct {
	errs []error
}

func (o *recordingObserver) ObserveQuery(err error) { o.errs = append(o.errs, err) }

func TestBuildQueryBindsEveryFilter(t *testing.T) {
	query, args := BuildQuery(Filter{
		Types:         []GroupType{Individual, Group},
		Genders:       []GenderCode{Female},
		ModifiedSince: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Limit:         50,
	})
	assert.Contains(t, query, "deleted IS NULL AND modified >= ?")
	assert.Contains(t, query, "AND is_group IN (?, ?)")
	assert.Contains(t, query, "AND gender_cd IN (?)")
	assert.NotContains(t, query, "name IN")
	assert.Contains(t, query, "ORDER BY total_score DESC")
	assert.Equal(t, []any{"2024-03-01", 0, 1, 2, 50}, args)
}

func TestBuildQueryDefaultsAndClamp(t *testing.T) {
	_, args := BuildQuery(Filter{})
	assert.Equal(t, []any{"2023-01-01", DefaultLimit}, args)

	_, args = BuildQuery(Filter{Limit: 999999})
	assert.Equal(t, MaxLimit, args[len(args)-1])
}

func TestNameFilter(t *testing.T) {
	query, args := BuildQuery(NameFilter([]string{"山田花子", "Robert'); DROP TABLE talents;--"}))
	assert.Contains(t, query, "AND name IN (?, ?)")
	assert.NotContains(t, query, "DROP")
	assert.Equal(t, []any{"2000-01-01", "山田花子", "Robert'); DROP TABLE talents;--", 2}, args)
}

func TestNameFilterTrimsAndDropsBlank(t *testing.T) {
	f := NameFilter([]string{" 山田花子 ", "", "\t", "B"})
	assert.Equal(t, []string{"山田花子", "B"}, f.Names)
	assert.Equal(t, 2, f.Limit)
	assert.Empty(t, CleanNames([]string{"", " "}))
}

func TestSearchMapsRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	filter := Filter{Genders: []GenderCode{Female}, Limit: 10}
	query, _ := BuildQuery(filter)
	mock.ExpectQuery(query).
		WithArgs("2023-01-01", 2, 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "山田花子", int64(1990), int64(6), int64(16), int64(2), int64(0), "カテゴリA：あり サトウ『商品X』", "https://agency.example/a").
			AddRow(int64(2), "ユニットB", nil, nil, nil, int64(3), int64(1), nil, nil).
			AddRow(int64(3), "山田花子", int64(1990), int64(6), int64(15), int64(2), int64(0), "更新後", nil))

	obs := &recordingObserver{}
	repo := New(db, WithClock(fixedClock), WithObserver(obs))
	talents, err := repo.Search(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, talents, 2)

	first := talents[0]
	assert.Equal(t, "3", first.ID)
	assert.Equal(t, "山田花子", first.Name)
	assert.Equal(t, "34", first.Age)
	assert.Equal(t, "女性", first.Gender)
	assert.Equal(t, "個人", first.Type)
	assert.Equal(t, "更新後", first.AdNote)
	assert.False(t, first.NoNote)
	assert.Empty(t, first.AgencyURL)

	group := talents[1]
	assert.Equal(t, "", group.Age)
	assert.Equal(t, "混成", group.Gender)
	assert.Equal(t, "グループ", group.Type)
	assert.True(t, group.NoNote)
	assert.Nil(t, group.Note())

	assert.Equal(t, []error{nil}, obs.errs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchQueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	query, _ := BuildQuery(Filter{})
	boom := errors.New("connection reset")
	mock.ExpectQuery(query).WillReturnError(boom)

	obs := &recordingObserver{}
	_, err = New(db, WithObserver(obs)).Search(context.Background(), Filter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])
}

func TestAge(t *testing.T) {
	now := fixedClock()
	n := func(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }
	assert.Equal(t, "34", Age(n(1990), n(6), n(15), now), "birthday today")
	assert.Equal(t, "33", Age(n(1990), n(6), n(16), now), "birthday tomorrow")
	assert.Equal(t, "34", Age(n(1990), n(1), n(1), now))
	assert.Equal(t, "", Age(n(1990), sql.NullInt64{}, n(1), now))
	assert.Equal(t, "", Age(sql.NullInt64{}, n(1), n(1), now))
}

func TestLabels(t *testing.T) {
	n := func(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }
	cases := []struct {
		group bool
		code  sql.NullInt64
		want  string
	}{
		{false, n(1), "男性"},
		{false, n(2), "女性"},
		{false, n(3), "その他"},
		{false, n(9), "不明"},
		{true, n(1), "男性のみ"},
		{true, n(2), "女性のみ"},
		{true, n(3), "混成"},
		{true, sql.NullInt64{}, "不明"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GenderLabel(c.group, c.code))
	}
	assert.False(t, IsGroup(n(0)))
	assert.True(t, IsGroup(n(1)))
	assert.True(t, IsGroup(sql.NullInt64{}))
	assert.Equal(t, "個人", TypeLabel(false))
	assert.Equal(t, "グループ", TypeLabel(true))
}

func TestSearchSQLite(t *testing.T) {
	repo, err := Open(context.Background(), "sqlite3", ":memory:", WithClock(fixedClock))
	if err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	defer repo.Close()
	repo.db.SetMaxOpenConns(1)

	_, err = repo.db.Exec(`CREATE TABLE talents (
		id INTEGER PRIMARY KEY, name TEXT, born_date_yyyy INTEGER, born_date_mm INTEGER, born_date_dd INTEGER,
		gender_cd INTEGER, is_group INTEGER, memo_cm TEXT, other_blog_url TEXT, deleted TEXT, modified TEXT,
		total_score INTEGER, instagram_follower_count INTEGER, twitter_follower_count INTEGER,
		youtube_subscriber_count INTEGER, tiktok_follower_count INTEGER)`)
	require.NoError(t, err)
	_, err = repo.db.Exec(`INSERT INTO talents VALUES
		(1, 'A', 2000, 1, 1, 1, 0, 'x', NULL, NULL, '2024-01-01', 10, 0, 0, 0, 0),
		(2, 'B', 2000, 1, 1, 2, 0, 'y', NULL, NULL, '2024-01-01', 50, 0, 0, 0, 0),
		(3, 'C', 2000, 1, 1, 2, 0, 'z', NULL, '2024-02-01', '2024-01-01', 99, 0, 0, 0, 0),
		(4, 'D', 2000, 1, 1, 2, 0, 'w', NULL, NULL, '2020-01-01', 99, 0, 0, 0, 0)`)
	require.NoError(t, err)

	talents, err := repo.Search(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, talents, 2)
	assert.Equal(t, "B", talents[0].Name)
	assert.Equal(t, "A", talents[1].Name)
	assert.Equal(t, "24", talents[0].Age)

	talents, err = repo.Search(context.Background(), Filter{Genders: []GenderCode{Male}})
	require.NoError(t, err)
	require.Len(t, talents, 1)
	assert.Equal(t, "男性", talents[0].Gender)
}

func TestFilterFromConfig(t *testing.T) {
	f, err := FilterFromConfig(categorizer.SearchConfig{
		Types:         []int{1},
		Genders:       []int{1, 3},
		ModifiedSince: "2024-04-01",
		Limit:         20,
	})
	require.NoError(t, err)
	assert.Equal(t, []GroupType{Group}, f.Types)
	assert.Equal(t, []GenderCode{Male, Mixed}, f.Genders)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), f.ModifiedSince)
	assert.Equal(t, 20, f.Limit)

	_, err = FilterFromConfig(categorizer.SearchConfig{ModifiedSince: "04/01/2024"})
	assert.Error(t, err)
}
