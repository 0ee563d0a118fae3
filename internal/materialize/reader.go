package materialize

import (
	"context"
	"fmt"

	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// MovieQuery selects every feature film left-joined to its rating, ordered
// by movie key so runs are reproducible.
func MovieQuery(rs *schema.Resolved) string {
	return fmt.Sprintf(`SELECT m.*, r.%[1]s AS %[2]s, r.average_rating AS %[3]s, r.num_votes AS %[4]s
FROM movies m
LEFT JOIN ratings r ON m.%[1]s = r.%[1]s
WHERE m.title_type = 'movie'
ORDER BY m.%[1]s`, rs.MovieKey(), movie.ColRatingKey, movie.ColAverage, movie.ColVotes)
}

// ReadMovieRows loads all movie rows up front. The full read keeps the total
// known for progress reporting and frees the connection for the expander's
// lookups.
func ReadMovieRows(ctx context.Context, src *relational.Source, rs *schema.Resolved) ([]movie.Row, error) {
	rows, err := src.QueryContext(ctx, MovieQuery(rs))
	if err != nil {
		return nil, fmt.Errorf("materialize: read movies: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("materialize: read movies: %w", err)
	}

	var out []movie.Row
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("materialize: scan movie: %w", err)
		}
		row := make(movie.Row, len(cols))
		for i, c := range cols {
			// Drivers may reuse byte buffers between rows.
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("materialize: read movies: %w", err)
	}
	return out, nil
}
