// Package catalog holds the read-side accessors the HTTP layer serves. Store
// faults never reach callers as errors: they are logged and the accessor
// returns an empty result. Absence is reported as ErrNotFound.
package catalog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

const (
	DefaultTopLimit    = 12
	DefaultRandomLimit = 5
)

// Stats are the headline counts.
type Stats struct {
	Movies    int64 `json:"movies"`
	Actors    int64 `json:"actors"`
	Directors int64 `json:"directors"`
}

// Card is a movie as listed on the home page.
type Card struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Year   *int     `json:"year"`
	Rating *float64 `json:"rating"`
}

// Home is the landing page payload.
type Home struct {
	Stats        Stats  `json:"stats"`
	TopMovies    []Card `json:"top_movies"`
	RandomMovies []Card `json:"random_movies"`
}

// Relational serves the statistics that are cheapest on the source.
type Relational struct {
	Source      *relational.Source
	Schema      *schema.Resolved
	TopLimit    int
	RandomLimit int
	Log         logrus.FieldLogger
}

// Home reads the counts, the top rated and a random sample concurrently.
func (r *Relational) Home(ctx context.Context) Home {
	h := Home{TopMovies: []Card{}, RandomMovies: []Card{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Stats = r.stats(gctx)
		return nil
	})
	g.Go(func() error {
		h.TopMovies = r.cards(gctx, "top", r.orderTop(), or(r.TopLimit, DefaultTopLimit))
		return nil
	})
	g.Go(func() error {
		h.RandomMovies = r.cards(gctx, "random", r.Source.Dialect.Random, or(r.RandomLimit, DefaultRandomLimit))
		return nil
	})
	_ = g.Wait()
	return h
}

func or(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func (r *Relational) stats(ctx context.Context) Stats {
	var s Stats
	pk := r.Schema.PersonKey()
	for _, c := range []struct {
		dst *int64
		sql string
	}{
		{&s.Movies, "SELECT COUNT(*) FROM movies WHERE title_type = 'movie'"},
		{&s.Actors, fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM principals WHERE category IN ('actor', 'actress')", pk)},
		{&s.Directors, fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM directors", pk)},
	} {
		if err := r.Source.QueryRowContext(ctx, c.sql).Scan(c.dst); err != nil {
			r.Log.WithError(err).Warn("catalog: stats")
			return Stats{}
		}
	}
	return s
}

func (r *Relational) orderTop() string {
	return fmt.Sprintf("CASE WHEN r.average_rating IS NULL THEN 1 ELSE 0 END, r.average_rating DESC, m.%s", r.Schema.MovieKey())
}

func (r *Relational) cards(ctx context.Context, what, orderBy string, limit int) []Card {
	mk := r.Schema.MovieKey()
	q := fmt.Sprintf(`SELECT m.%[1]s, m.primary_title, m.start_year, r.average_rating
FROM movies m LEFT JOIN ratings r ON r.%[1]s = m.%[1]s
WHERE m.title_type = 'movie'
ORDER BY %[2]s`, mk, orderBy) + r.Source.Dialect.Limit(limit)

	out := []Card{}
	rows, err := r.Source.QueryContext(ctx, q)
	if err != nil {
		r.Log.WithError(err).WithField("list", what).Warn("catalog: home movies")
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c      Card
			year   sqlNullInt
			rating sqlNullFloat
		)
		if err := rows.Scan(&c.ID, &c.Title, &year, &rating); err != nil {
			r.Log.WithError(err).WithField("list", what).Warn("catalog: home movies")
			return []Card{}
		}
		c.Year, c.Rating = year.ptr(), rating.ptr()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		r.Log.WithError(err).WithField("list", what).Warn("catalog: home movies")
		return []Card{}
	}
	return out
}
