package materialize

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// CastLimit caps the embedded cast per movie.
const CastLimit = 6

// Relationship names used in logs and run summaries.
const (
	RelCast       = "cast"
	RelCharacters = "characters"
	RelDirectors  = "directors"
	RelWriters    = "writers"
	RelTitles     = "titles"
	RelGenres     = "genres"
)

// Character is one character_name credited to a person in a movie.
type Character struct {
	PersonID string
	Name     string
}

// Expansion holds the per-relationship lookups for one movie.
type Expansion struct {
	Cast       Fetch[movie.CastMember]
	Characters Fetch[Character]
	Directors  Fetch[movie.Credit]
	Writers    Fetch[movie.Credit]
	Titles     Fetch[movie.AltTitle]
	Genres     Fetch[string]
}

// Expanded reports whether the relationship lookups ran for this movie.
func (x Expansion) Expanded() bool { return x.Cast.Status != StatusSkipped }

// Failed returns the names of relationships whose lookup errored.
func (x Expansion) Failed() []string {
	var out []string
	for _, r := range []struct {
		name string
		st   Status
	}{
		{RelCast, x.Cast.Status},
		{RelCharacters, x.Characters.Status},
		{RelDirectors, x.Directors.Status},
		{RelWriters, x.Writers.Status},
		{RelTitles, x.Titles.Status},
		{RelGenres, x.Genres.Status},
	} {
		if r.st == StatusFailed {
			out = append(out, r.name)
		}
	}
	return out
}

// Apply copies the fetched relationships into doc.
func (x Expansion) Apply(doc *movie.Document) {
	byPerson := map[string][]string{}
	for _, c := range x.Characters.Items {
		byPerson[c.PersonID] = append(byPerson[c.PersonID], c.Name)
	}
	cast := make([]movie.CastMember, len(x.Cast.Items))
	for i, m := range x.Cast.Items {
		m.Characters = byPerson[m.PersonID]
		if m.Characters == nil {
			m.Characters = []string{}
		}
		cast[i] = m
	}
	doc.Cast = cast
	doc.Directors = x.Directors.Items
	doc.Writers = x.Writers.Items
	doc.Titles = x.Titles.Items
	doc.Genres = x.Genres.Items
}

// Expander issues the secondary lookups for a movie. Its SQL is rendered
// once from the resolved schema.
type Expander struct {
	src *relational.Source
	log logrus.FieldLogger

	castSQL       string
	charactersSQL string
	directorsSQL  string
	writersSQL    string
	titlesSQL     string
	genresSQL     string
}

// NewExpander prepares the lookup queries for rs.
func NewExpander(src *relational.Source, rs *schema.Resolved, log logrus.FieldLogger) *Expander {
	mk, pk, name := rs.MovieKey(), rs.PersonKey(), rs.PersonName()
	e := &Expander{
		src: src,
		log: log,
		castSQL: fmt.Sprintf(`SELECT pr.%[2]s, p.%[3]s, pr.category, pr.ordering
FROM principals pr JOIN persons p ON pr.%[2]s = p.%[2]s
WHERE pr.%[1]s = ? AND pr.category IN ('actor', 'actress')
ORDER BY pr.ordering, pr.%[2]s`, mk, pk, name) + src.Dialect.Limit(CastLimit),
		charactersSQL: fmt.Sprintf(`SELECT %[2]s, character_name FROM characters
WHERE %[1]s = ? AND character_name IS NOT NULL
ORDER BY %[2]s, character_name`, mk, pk),
		directorsSQL: creditSQL("directors", mk, pk, name),
		writersSQL:   creditSQL("writers", mk, pk, name),
		genresSQL:    fmt.Sprintf(`SELECT genre FROM genres WHERE %s = ? ORDER BY genre`, mk),
	}
	if aka, ok := rs.Aka(); ok {
		region, lang := "NULL", "NULL"
		order := []string{aka.Title}
		if aka.HasRegion() {
			region = aka.Region
			order = append(order, aka.Region)
		}
		if aka.HasLanguage() {
			lang = aka.Language
			order = append(order, aka.Language)
		}
		e.titlesSQL = fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = ? AND %s IS NOT NULL ORDER BY %s`,
			aka.Title, region, lang, aka.Table, aka.ForeignKey, aka.Title, strings.Join(order, ", "))
	}
	return e
}

func creditSQL(table, mk, pk, name string) string {
	return fmt.Sprintf(`SELECT l.%[2]s, p.%[3]s
FROM %[4]s l JOIN persons p ON l.%[2]s = p.%[2]s
WHERE l.%[1]s = ?
ORDER BY l.%[2]s`, mk, pk, name, table)
}

// Expand looks up the relationships of one movie. When votes <= 0 only
// genres are queried; everything else is skipped. A failed lookup leaves
// that relationship empty and does not affect the others.
func (e *Expander) Expand(ctx context.Context, movieID string, votes int64) Expansion {
	x := Expansion{
		Genres:     fetched(e.genres(ctx, movieID)),
		Cast:       skipped[movie.CastMember](),
		Characters: skipped[Character](),
		Directors:  skipped[movie.Credit](),
		Writers:    skipped[movie.Credit](),
		Titles:     skipped[movie.AltTitle](),
	}
	if votes > 0 {
		x.Cast = fetched(e.cast(ctx, movieID))
		if x.Cast.Status == StatusOK {
			x.Characters = fetched(e.characters(ctx, movieID))
		}
		x.Directors = fetched(e.credits(ctx, e.directorsSQL, movieID))
		x.Writers = fetched(e.credits(ctx, e.writersSQL, movieID))
		if e.titlesSQL != "" {
			x.Titles = fetched(e.titles(ctx, movieID))
		}
	}

	for _, f := range []struct {
		name string
		err  error
	}{
		{RelCast, x.Cast.Err}, {RelCharacters, x.Characters.Err}, {RelDirectors, x.Directors.Err},
		{RelWriters, x.Writers.Err}, {RelTitles, x.Titles.Err}, {RelGenres, x.Genres.Err},
	} {
		if f.err != nil {
			e.log.WithError(f.err).WithFields(logrus.Fields{
				"movie_id": movieID, "relationship": f.name,
			}).Warn("expand: lookup failed; relationship left empty")
		}
	}
	return x
}

func (e *Expander) cast(ctx context.Context, movieID string) ([]movie.CastMember, error) {
	return collect(ctx, e.src, e.castSQL, movieID, func(rows *sql.Rows) (movie.CastMember, error) {
		var (
			m              movie.CastMember
			name, category sql.NullString
			ordering       sql.NullInt64
		)
		if err := rows.Scan(&m.PersonID, &name, &category, &ordering); err != nil {
			return m, err
		}
		m.Name = name.String
		m.Category = category.String
		m.Ordering = int(ordering.Int64)
		m.Characters = []string{}
		return m, nil
	})
}

func (e *Expander) characters(ctx context.Context, movieID string) ([]Character, error) {
	return collect(ctx, e.src, e.charactersSQL, movieID, func(rows *sql.Rows) (Character, error) {
		var c Character
		err := rows.Scan(&c.PersonID, &c.Name)
		return c, err
	})
}

func (e *Expander) credits(ctx context.Context, query, movieID string) ([]movie.Credit, error) {
	return collect(ctx, e.src, query, movieID, func(rows *sql.Rows) (movie.Credit, error) {
		var c movie.Credit
		var name sql.NullString
		err := rows.Scan(&c.PersonID, &name)
		c.Name = name.String
		return c, err
	})
}

func (e *Expander) titles(ctx context.Context, movieID string) ([]movie.AltTitle, error) {
	return collect(ctx, e.src, e.titlesSQL, movieID, func(rows *sql.Rows) (movie.AltTitle, error) {
		var (
			a            movie.AltTitle
			region, lang sql.NullString
		)
		if err := rows.Scan(&a.Title, &region, &lang); err != nil {
			return a, err
		}
		if region.Valid {
			a.Region = &region.String
		}
		if lang.Valid {
			a.Language = &lang.String
		}
		return a, nil
	})
}

func (e *Expander) genres(ctx context.Context, movieID string) ([]string, error) {
	return collect(ctx, e.src, e.genresSQL, movieID, func(rows *sql.Rows) (string, error) {
		var g string
		err := rows.Scan(&g)
		return g, err
	})
}

func collect[T any](ctx context.Context, src *relational.Source, query, movieID string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := src.QueryContext(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
