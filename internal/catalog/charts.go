package catalog

import (
	"context"
	"fmt"
)

// Bucket is one bar of a chart.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Charts are the aggregate series of the statistics page.
type Charts struct {
	Genres  []Bucket `json:"genres"`
	Decades []Bucket `json:"decades"`
	Ratings []Bucket `json:"ratings"`
	Actors  []Bucket `json:"actors"`
}

const chartTop = 10

// Charts computes the statistics series. A failing series is logged and
// left empty; the others are still returned.
func (r *Relational) Charts(ctx context.Context) Charts {
	mk, pk, name := r.Schema.MovieKey(), r.Schema.PersonKey(), r.Schema.PersonName()
	d := r.Source.Dialect
	decade := d.IntDiv("start_year", 10) + " * 10"
	return Charts{
		Genres: r.buckets(ctx, "genres", `SELECT genre, COUNT(*) FROM genres
GROUP BY genre ORDER BY COUNT(*) DESC, genre`+d.Limit(chartTop)),
		Decades: r.buckets(ctx, "decades", fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM movies
WHERE title_type = 'movie' AND start_year IS NOT NULL
GROUP BY %[1]s ORDER BY %[1]s`, decade)),
		Ratings: r.buckets(ctx, "ratings", `SELECT CAST(average_rating AS INTEGER), COUNT(*) FROM ratings
WHERE average_rating IS NOT NULL
GROUP BY CAST(average_rating AS INTEGER) ORDER BY CAST(average_rating AS INTEGER)`),
		Actors: r.buckets(ctx, "actors", fmt.Sprintf(`SELECT p.%[3]s, COUNT(DISTINCT pr.%[1]s) FROM principals pr
JOIN persons p ON p.%[2]s = pr.%[2]s
WHERE pr.category IN ('actor', 'actress')
GROUP BY p.%[2]s, p.%[3]s ORDER BY COUNT(DISTINCT pr.%[1]s) DESC, p.%[2]s`, mk, pk, name)+d.Limit(chartTop)),
	}
}

func (r *Relational) buckets(ctx context.Context, series, q string) []Bucket {
	out := []Bucket{}
	rows, err := r.Source.QueryContext(ctx, q)
	if err != nil {
		r.Log.WithError(err).WithField("series", series).Warn("catalog: charts")
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var (
			label any
			b     Bucket
		)
		if err := rows.Scan(&label, &b.Count); err != nil {
			r.Log.WithError(err).WithField("series", series).Warn("catalog: charts")
			return []Bucket{}
		}
		switch v := label.(type) {
		case []byte:
			b.Label = string(v)
		case nil:
			continue
		default:
			b.Label = fmt.Sprint(v)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		r.Log.WithError(err).WithField("series", series).Warn("catalog: charts")
		return []Bucket{}
	}
	return out
}
