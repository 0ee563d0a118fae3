package query

import (
	"fmt"
	"strings"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// Plan is a rendered SQL statement with its bind arguments. Placeholders are
// '?' and are rebound by relational.Source.
type Plan struct {
	SQL  string
	Args []any
}

// rowColumns are the aliases every SQL plan selects, in scan order.
var rowColumns = []string{"row_key", "row_group", "row_label", "row_year", "row_count", "row_value", "row_rank"}

func selectRow(exprs ...string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e + " AS " + rowColumns[i]
	}
	return "SELECT " + strings.Join(parts, ", ")
}

const actingCategories = "('actor', 'actress')"

// SQLPlan renders q for the relational source described by rs and d.
func SQLPlan(q Question, p Params, rs *schema.Resolved, d relational.Dialect) (Plan, error) {
	mk, pk, name := rs.MovieKey(), rs.PersonKey(), rs.PersonName()
	switch q {
	case Filmography:
		return Plan{SQL: selectRow("m."+mk, "NULL", "m.primary_title", "m.start_year", "0", "r.average_rating", "0") + fmt.Sprintf(`
FROM movies m
JOIN principals pr ON pr.%[1]s = m.%[1]s
JOIN persons p ON p.%[2]s = pr.%[2]s
LEFT JOIN ratings r ON r.%[1]s = m.%[1]s
WHERE m.title_type = 'movie' AND pr.category IN %[4]s AND LOWER(p.%[3]s) LIKE ? ESCAPE '!'
GROUP BY m.%[1]s, m.primary_title, m.start_year, r.average_rating
ORDER BY CASE WHEN m.start_year IS NULL THEN 1 ELSE 0 END, m.start_year DESC, m.%[1]s`, mk, pk, name, actingCategories),
			Args: []any{relational.LikeContains(p.Person)}}, nil

	case TopByGenre:
		return Plan{SQL: selectRow("m."+mk, "g.genre", "m.primary_title", "m.start_year", "r.num_votes", "r.average_rating", "0") + fmt.Sprintf(`
FROM movies m
JOIN genres g ON g.%[1]s = m.%[1]s
JOIN ratings r ON r.%[1]s = m.%[1]s
WHERE m.title_type = 'movie' AND g.genre = ? AND m.start_year BETWEEN ? AND ? AND r.num_votes > %[2]d
ORDER BY r.average_rating DESC, m.%[1]s`, mk, TopVoteFloor) + d.Limit(p.topN()),
			Args: []any{p.Genre, p.YearFrom, p.YearTo}}, nil

	case MultiRole:
		return Plan{SQL: selectRow("c."+mk, "c."+pk, "p."+name, "NULL", "COUNT(c.character_name)", "NULL", "0") + fmt.Sprintf(`
FROM characters c
JOIN persons p ON p.%[2]s = c.%[2]s
JOIN movies m ON m.%[1]s = c.%[1]s
WHERE m.title_type = 'movie' AND c.character_name IS NOT NULL
GROUP BY c.%[1]s, c.%[2]s, p.%[3]s
HAVING COUNT(c.character_name) > 1
ORDER BY COUNT(c.character_name) DESC, c.%[1]s, c.%[2]s`, mk, pk, name) + d.Limit(MultiRoleLimit)}, nil

	case Collaborations:
		return Plan{SQL: selectRow("d."+pk, "NULL", "dp."+name, "NULL", "COUNT(DISTINCT d."+mk+")", "NULL", "0") + fmt.Sprintf(`
FROM directors d
JOIN persons dp ON dp.%[2]s = d.%[2]s
JOIN movies m ON m.%[1]s = d.%[1]s
WHERE m.title_type = 'movie' AND d.%[1]s IN (
  SELECT pr.%[1]s FROM principals pr JOIN persons p ON p.%[2]s = pr.%[2]s
  WHERE pr.category IN %[4]s AND LOWER(p.%[3]s) LIKE ? ESCAPE '!')
GROUP BY d.%[2]s, dp.%[3]s
ORDER BY COUNT(DISTINCT d.%[1]s) DESC, d.%[2]s`, mk, pk, name, actingCategories) + d.Limit(CollaborationsLimit),
			Args: []any{relational.LikeContains(p.Person)}}, nil

	case PopularGenres:
		return Plan{SQL: selectRow("g.genre", "NULL", "g.genre", "NULL", "COUNT(*)", "AVG(r.average_rating)", "0") + fmt.Sprintf(`
FROM genres g
JOIN ratings r ON r.%[1]s = g.%[1]s
JOIN movies m ON m.%[1]s = g.%[1]s
WHERE m.title_type = 'movie'
GROUP BY g.genre
HAVING AVG(r.average_rating) > %.1[2]f AND COUNT(*) > %[3]d
ORDER BY AVG(r.average_rating) DESC, g.genre`, mk, PopularMinAverage, PopularMinCount)}, nil

	case Career:
		return Plan{SQL: selectRow("NULL", "NULL", "NULL", "t.decade", "COUNT(*)", "AVG(t.average_rating)", "0") + fmt.Sprintf(`
FROM (
  SELECT DISTINCT m.%[1]s AS movie_key, %[5]s * 10 AS decade, r.average_rating
  FROM movies m
  JOIN principals pr ON pr.%[1]s = m.%[1]s
  JOIN persons p ON p.%[2]s = pr.%[2]s
  LEFT JOIN ratings r ON r.%[1]s = m.%[1]s
  WHERE m.title_type = 'movie' AND m.start_year IS NOT NULL
    AND pr.category IN %[4]s AND LOWER(p.%[3]s) LIKE ? ESCAPE '!'
) t
GROUP BY t.decade
ORDER BY t.decade`, mk, pk, name, actingCategories, d.IntDiv("m.start_year", 10)),
			Args: []any{relational.LikeContains(p.Person)}}, nil

	case RankByGenre:
		return Plan{SQL: selectRow("t.movie_key", "t.genre", "t.primary_title", "t.start_year", "t.num_votes", "t.average_rating", "t.rk") + fmt.Sprintf(`
FROM (
  SELECT m.%[1]s AS movie_key, g.genre, m.primary_title, m.start_year, r.num_votes, r.average_rating,
         RANK() OVER (PARTITION BY g.genre
                      ORDER BY CASE WHEN r.average_rating IS NULL THEN 1 ELSE 0 END, r.average_rating DESC) AS rk
  FROM movies m
  JOIN genres g ON g.%[1]s = m.%[1]s
  JOIN ratings r ON r.%[1]s = m.%[1]s
  WHERE m.title_type = 'movie' AND r.num_votes > %[2]d
) t
WHERE t.rk <= %[3]d
ORDER BY t.genre, t.rk, t.movie_key`, mk, RankVoteFloor, RankCutoff)}, nil

	case Breakout:
		return Plan{SQL: selectRow("t.person_key", "t.movie_key", "t.person_name", "t.start_year", "t.num_votes", "NULL", "0") + fmt.Sprintf(`
FROM (
  SELECT p.%[2]s AS person_key, p.%[3]s AS person_name, m.%[1]s AS movie_key, m.start_year, r.num_votes,
         ROW_NUMBER() OVER (PARTITION BY p.%[2]s ORDER BY m.start_year, m.%[1]s) AS rn
  FROM principals pr
  JOIN persons p ON p.%[2]s = pr.%[2]s
  JOIN movies m ON m.%[1]s = pr.%[1]s
  JOIN ratings r ON r.%[1]s = m.%[1]s
  WHERE m.title_type = 'movie' AND m.start_year IS NOT NULL
    AND pr.category IN %[4]s AND r.num_votes > %[5]d
) t
WHERE t.rn = 1
ORDER BY t.num_votes DESC, t.person_key`, mk, pk, name, actingCategories, BreakoutVotes) + d.Limit(BreakoutLimit)}, nil

	case FrenchLongHits:
		aka, ok := rs.Aka()
		if !ok || !aka.HasLanguage() {
			return Plan{}, fmt.Errorf("%w: no alternate-title language column", ErrUnsupported)
		}
		return Plan{SQL: selectRow("m."+mk, "NULL", "m.primary_title", "m.start_year", "m.runtime_minutes", "r.average_rating", "0") + fmt.Sprintf(`
FROM movies m
JOIN ratings r ON r.%[1]s = m.%[1]s
WHERE m.title_type = 'movie' AND m.runtime_minutes > %[5]d AND r.average_rating > %.1[6]f
  AND EXISTS (SELECT 1 FROM %[2]s a WHERE a.%[3]s = m.%[1]s AND a.%[4]s = ?)
ORDER BY m.%[1]s`, mk, aka.Table, aka.ForeignKey, aka.Language, LongRuntime, HighRating) + d.Limit(FrenchLimit),
			Args: []any{FrenchLanguage}}, nil
	}
	return Plan{}, fmt.Errorf("query: unknown question %d", int(q))
}
