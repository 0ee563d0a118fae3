package catalog

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qlemen7/cineexplorer/internal/movie"
)

var (
	// ErrNotFound means the requested movie does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUnavailable means the store could not answer; details are logged.
	ErrUnavailable = errors.New("catalog: unavailable")
)

const (
	SimilarLimit   = 6
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Sort keys accepted by List.
const (
	SortYearDesc   = "year_desc"
	SortYearAsc    = "year_asc"
	SortRatingDesc = "rating_desc"
	SortRatingAsc  = "rating_asc"
	SortTitleAsc   = "title_asc"
	SortTitleDesc  = "title_desc"
)

var sortFields = map[string]bson.D{
	SortYearDesc:   {{Key: "year", Value: -1}},
	SortYearAsc:    {{Key: "year", Value: 1}},
	SortRatingDesc: {{Key: "rating.average", Value: -1}},
	SortRatingAsc:  {{Key: "rating.average", Value: 1}},
	SortTitleAsc:   {{Key: "sort_title", Value: 1}},
	SortTitleDesc:  {{Key: "sort_title", Value: -1}},
}

var summaryProjection = bson.D{
	{Key: "title", Value: 1}, {Key: "year", Value: 1}, {Key: "rating", Value: 1}, {Key: "genres", Value: 1},
}

// ListQuery is a page request with optional filters. Zero values mean
// "no filter".
type ListQuery struct {
	Page      int
	PerPage   int
	Q         string
	Genre     string
	YearMin   int
	RatingMin float64
	Sort      string
}

// Page is one page of List results.
type Page struct {
	Items   []movie.Summary `json:"items"`
	HasNext bool            `json:"has_next"`
}

// Movies serves documents from the materialized collection.
type Movies struct {
	Coll *mongo.Collection
	Log  logrus.FieldLogger
}

// Detail returns the full document for id.
func (m *Movies) Detail(ctx context.Context, id string) (movie.Document, error) {
	var doc movie.Document
	err := m.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return doc, ErrNotFound
	case err != nil:
		m.Log.WithError(err).WithField("id", id).Error("catalog: detail")
		return doc, ErrUnavailable
	}
	return doc, nil
}

// Similar returns the best rated movies sharing a genre with the given
// list, excluding excludeID.
func (m *Movies) Similar(ctx context.Context, genres []string, excludeID string) []movie.Summary {
	if len(genres) == 0 {
		return []movie.Summary{}
	}
	filter := bson.D{
		{Key: "genres", Value: bson.D{{Key: "$in", Value: genres}}},
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}},
	}
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "rating.average", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(SimilarLimit)
	return m.find(ctx, "similar", filter, opts)
}

// ListFilter renders q into a filter and find options. The page size is
// clamped to [1, MaxPerPage] and unknown sort keys fall back to year_desc.
func ListFilter(q ListQuery) (bson.D, *options.FindOptions) {
	filter := bson.D{}
	if s := strings.TrimSpace(q.Q); s != "" {
		re := bson.D{{Key: "$regex", Value: regexp.QuoteMeta(s)}, {Key: "$options", Value: "i"}}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "cast.name", Value: re}},
		}})
	}
	if q.Genre != "" {
		filter = append(filter, bson.E{Key: "genres", Value: q.Genre})
	}
	if q.YearMin > 0 {
		filter = append(filter, bson.E{Key: "year", Value: bson.D{{Key: "$gte", Value: q.YearMin}}})
	}
	if q.RatingMin > 0 {
		filter = append(filter, bson.E{Key: "rating.average", Value: bson.D{{Key: "$gte", Value: q.RatingMin}}})
	}

	page := max(q.Page, 1)
	per := q.PerPage
	if per <= 0 {
		per = DefaultPerPage
	}
	per = min(per, MaxPerPage)
	sort, ok := sortFields[q.Sort]
	if !ok {
		sort = sortFields[SortYearDesc]
	}
	sort = append(slices.Clone(sort), bson.E{Key: "_id", Value: 1})

	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(sort).
		SetSkip(int64((page - 1) * per)).
		SetLimit(int64(per))
	return filter, opts
}

// List returns one page of movies. HasNext is set when the page is full.
func (m *Movies) List(ctx context.Context, q ListQuery) Page {
	filter, opts := ListFilter(q)
	items := m.find(ctx, "list", filter, opts)
	return Page{Items: items, HasNext: opts.Limit != nil && int64(len(items)) == *opts.Limit}
}

// Genres returns the distinct genres, sorted.
func (m *Movies) Genres(ctx context.Context) []string {
	vals, err := m.Coll.Distinct(ctx, "genres", bson.D{})
	if err != nil {
		m.Log.WithError(err).Warn("catalog: genres")
		return []string{}
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

func (m *Movies) find(ctx context.Context, what string, filter bson.D, opts *options.FindOptions) []movie.Summary {
	out := []movie.Summary{}
	cur, err := m.Coll.Find(ctx, filter, opts)
	if err == nil {
		err = cur.All(ctx, &out)
	}
	if err != nil {
		m.Log.WithError(err).WithField("query", what).Warn("catalog: find")
		return []movie.Summary{}
	}
	return out
}
