// Package talentdb searches the talent table of the casting database and
// turns matching rows into categorizer talents.
package talentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Handydigital-dev/cmlist/categorizer"
)

// GroupType is the is_group column value.
type GroupType int

const (
	Individual GroupType = 0
	Group      GroupType = 1
)

// GenderCode is the gender_cd column value.
type GenderCode int

const (
	Male   GenderCode = 1
	Female GenderCode = 2
	Mixed  GenderCode = 3
)

const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

var (
	// DefaultModifiedSince is the lower bound on the modified column for
	// attribute searches.
	DefaultModifiedSince = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	// NameModifiedSince is the lower bound used when looking talents up by name.
	NameModifiedSince = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Filter selects talents. Empty Types, Genders or Names apply no restriction.
type Filter struct {
	Types         []GroupType
	Genders       []GenderCode
	ModifiedSince time.Time
	Limit         int
	Names         []string
}

// NameFilter looks up exactly the given names, trimmed. Blank names are
// dropped.
func NameFilter(names []string) Filter {
	names = CleanNames(names)
	return Filter{
		Names:         names,
		ModifiedSince: NameModifiedSince,
		Limit:         len(names),
	}
}

// CleanNames trims names and drops the blank ones.
func CleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

func (f Filter) since() time.Time {
	if f.ModifiedSince.IsZero() {
		return DefaultModifiedSince
	}
	return f.ModifiedSince
}

// QueryObserver is notified after every search.
type QueryObserver interface {
	ObserveQuery(err error)
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock sets the clock used to compute ages.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithObserver reports every query to o.
func WithObserver(o QueryObserver) Option {
	return func(r *Repository) { r.observer = o }
}

// Repository reads talents from a database/sql handle.
type Repository struct {
	db       *sql.DB
	now      func() time.Time
	observer QueryObserver
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *Repository {
	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open connects with the named driver ("mysql" or "sqlite3") and checks the
// connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is empty")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db, opts...), nil
}

// Close closes the underlying handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

const selectTalents = `SELECT id, name, born_date_yyyy, born_date_mm, born_date_dd, gender_cd, is_group, memo_cm, other_blog_url
FROM talents
WHERE deleted IS NULL AND modified >= ?`

const orderTalents = `
ORDER BY total_score DESC, instagram_follower_count DESC, twitter_follower_count DESC, youtube_subscriber_count DESC, tiktok_follower_count DESC
LIMIT ?`

// BuildQuery renders the search statement and its arguments. Every value is
// bound through a placeholder.
func BuildQuery(f Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(selectTalents)
	args := []any{f.since().Format(time.DateOnly)}

	if len(f.Types) > 0 {
		b.WriteString(" AND is_group IN (" + placeholders(len(f.Types)) + ")")
		for _, t := range f.Types {
			args = append(args, int(t))
		}
	}
	if len(f.Genders) > 0 {
		b.WriteString(" AND gender_cd IN (" + placeholders(len(f.Genders)) + ")")
		for _, g := range f.Genders {
			args = append(args, int(g))
		}
	}
	if len(f.Names) > 0 {
		b.WriteString(" AND name IN (" + placeholders(len(f.Names)) + ")")
		for _, n := range f.Names {
			args = append(args, n)
		}
	}
	b.WriteString(orderTalents)
	args = append(args, f.limit())
	return b.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Search returns matching talents in ranking order. A name seen twice keeps
// the later row at the earlier position.
func (r *Repository) Search(ctx context.Context, f Filter) (talents []categorizer.Talent, err error) {
	if r.observer != nil {
		defer func() { r.observer.ObserveQuery(err) }()
	}
	query, args := BuildQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query talents: %w", err)
	}
	defer rows.Close()

	now := r.now()
	for rows.Next() {
		var (
			id, name, note, url sql.NullString
			year, month, day    sql.NullInt64
			gender, group       sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &year, &month, &day, &gender, &group, &note, &url); err != nil {
			return nil, fmt.Errorf("scan talent: %w", err)
		}
		isGroup := IsGroup(group)
		talents = append(talents, categorizer.Talent{
			ID:        id.String,
			Name:      name.String,
			Age:       Age(year, month, day, now),
			Gender:    GenderLabel(isGroup, gender),
			Type:      TypeLabel(isGroup),
			AdNote:    note.String,
			AgencyURL: url.String,
			NoNote:    !note.Valid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate talents: %w", err)
	}
	return categorizer.DedupeByName(talents), nil
}

// IsGroup reports whether the is_group value denotes a group. Anything other
// than an explicit 0 counts as a group.
func IsGroup(v sql.NullInt64) bool {
	return !(v.Valid && v.Int64 == int64(Individual))
}

// Age computes the age in whole years on now's date. It is empty unless the
// full birth date is known.
func Age(year, month, day sql.NullInt64, now time.Time) string {
	if !year.Valid || !month.Valid || !day.Valid {
		return ""
	}
	age := now.Year() - int(year.Int64)
	if int(now.Month())*100+now.Day() < int(month.Int64)*100+int(day.Int64) {
		age--
	}
	return strconv.Itoa(age)
}

// GenderLabel renders gender_cd. Groups describe their composition.
func GenderLabel(isGroup bool, code sql.NullInt64) string {
	if !code.Valid {
		return "不明"
	}
	switch GenderCode(code.Int64) {
	case Male:
		if isGroup {
			return "男性のみ"
		}
		return "男性"
	case Female:
		if isGroup {
			return "女性のみ"
		}
		return "女性"
	case Mixed:
		if isGroup {
			return "混成"
		}
		return "その他"
	}
	return "不明"
}

// TypeLabel renders is_group.
func TypeLabel(isGroup bool) string {
	if isGroup {
		return "グループ"
	}
	return "個人"
}

// FilterFromConfig converts the configured search form into a Filter.
func FilterFromConfig(c categorizer.SearchConfig) (Filter, error) {
	f := Filter{Limit: c.Limit}
	if c.ModifiedSince != "" {
		since, err := time.Parse(time.DateOnly, c.ModifiedSince)
		if err != nil {
			return f, fmt.Errorf("modified_since: %w", err)
		}
		f.ModifiedSince = since
	}
	for _, t := range c.Types {
		f.Types = append(f.Types, GroupType(t))
	}
	for _, g := range c.Genders {
		f.Genders = append(f.Genders, GenderCode(g))
	}
	return f, nil
}
