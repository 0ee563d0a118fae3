package materialize

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qlemen7/cineexplorer/internal/docstore"
	"github.com/qlemen7/cineexplorer/internal/metrics"
	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// DefaultIDBatch is how many movies each server-side join handles.
const DefaultIDBatch = 1000

// Restructurer rebuilds the movies collection from the flat mirror
// collections. Joins run inside the document store; the documents it
// produces follow the same policy as Materializer (votes gate, cast cap).
type Restructurer struct {
	Job       string
	DB        *mongo.Database
	Sink      docstore.Sink
	Lock      docstore.Locker
	IDBatch   int
	BatchSize int
	Progress  func(docstore.Progress)
	Log       logrus.FieldLogger
}

func lookup(from, local, foreign, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from}, {Key: "localField", Value: local},
		{Key: "foreignField", Value: foreign}, {Key: "as", Value: as},
	}}}
}

func personName() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "persons"}, {Key: "localField", Value: "person_id"},
		{Key: "foreignField", Value: "person_id"}, {Key: "as", Value: "person"},
	}}}
}

func creditLookup(from string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "let", Value: bson.D{{Key: "mid", Value: "$movie_id"}}},
		{Key: "pipeline", Value: mongo.Pipeline{
			{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$movie_id", "$$mid"}}}}}}},
			personName(),
			{{Key: "$unwind", Value: "$person"}},
			{{Key: "$sort", Value: bson.D{{Key: "person_id", Value: 1}}}},
		}},
		{Key: "as", Value: from},
	}}}
}

// RestructurePipeline joins the mirror collections for the given movie ids.
func RestructurePipeline(ids []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "movie_id", Value: bson.D{{Key: "$in", Value: ids}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "movie_id", Value: 1}}}},
		lookup("ratings", "movie_id", "movie_id", "rating"),
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "genres"},
			{Key: "let", Value: bson.D{{Key: "mid", Value: "$movie_id"}}},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$movie_id", "$$mid"}}}}}}},
				{{Key: "$sort", Value: bson.D{{Key: "genre", Value: 1}}}},
			}},
			{Key: "as", Value: "genres"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "principals"},
			{Key: "let", Value: bson.D{{Key: "mid", Value: "$movie_id"}}},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{
					{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$movie_id", "$$mid"}}}},
					{Key: "category", Value: bson.D{{Key: "$in", Value: bson.A{"actor", "actress"}}}},
				}}},
				{{Key: "$sort", Value: bson.D{{Key: "ordering", Value: 1}, {Key: "person_id", Value: 1}}}},
				personName(),
				{{Key: "$unwind", Value: "$person"}},
				{{Key: "$limit", Value: CastLimit}},
				{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: "characters"},
					{Key: "let", Value: bson.D{{Key: "mid", Value: "$movie_id"}, {Key: "pid", Value: "$person_id"}}},
					{Key: "pipeline", Value: mongo.Pipeline{
						{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
							bson.D{{Key: "$eq", Value: bson.A{"$movie_id", "$$mid"}}},
							bson.D{{Key: "$eq", Value: bson.A{"$person_id", "$$pid"}}},
						}}}}}}},
						{{Key: "$sort", Value: bson.D{{Key: "character_name", Value: 1}}}},
					}},
					{Key: "as", Value: "characters"},
				}}},
			}},
			{Key: "as", Value: "cast"},
		}}},
		creditLookup("directors"),
		creditLookup("writers"),
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: docstore.TitlesCollection},
			{Key: "let", Value: bson.D{{Key: "mid", Value: "$movie_id"}}},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{
					{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$movie_id", "$$mid"}}}},
					{Key: "title", Value: bson.D{{Key: "$ne", Value: nil}}},
				}}},
				{{Key: "$sort", Value: bson.D{{Key: "title", Value: 1}, {Key: "region", Value: 1}, {Key: "language", Value: 1}}}},
			}},
			{Key: "as", Value: "alt_titles"},
		}}},
	}
}

type joinedPerson struct {
	Name any `bson:"primary_name"`
}

type joinedCredit struct {
	PersonID   string       `bson:"person_id"`
	Category   any          `bson:"category"`
	Ordering   any          `bson:"ordering"`
	Person     joinedPerson `bson:"person"`
	Characters []struct {
		Name any `bson:"character_name"`
	} `bson:"characters"`
}

type joinedMovie struct {
	Fields bson.M   `bson:",inline"`
	Rating []bson.M `bson:"rating"`
	Genres []struct {
		Genre string `bson:"genre"`
	} `bson:"genres"`
	Cast      []joinedCredit `bson:"cast"`
	Directors []joinedCredit `bson:"directors"`
	Writers   []joinedCredit `bson:"writers"`
	AltTitles []struct {
		Title    any `bson:"title"`
		Region   any `bson:"region"`
		Language any `bson:"language"`
	} `bson:"alt_titles"`
}

// toDocument applies the materialization policy to one joined result.
func (j joinedMovie) toDocument(rs *schema.Resolved) movie.Document {
	row := movie.Row{}
	for k, v := range j.Fields {
		row[k] = v
	}
	if len(j.Rating) > 0 {
		row[movie.ColRatingKey] = j.Rating[0]["movie_id"]
		row[movie.ColAverage] = j.Rating[0]["average_rating"]
		row[movie.ColVotes] = j.Rating[0]["num_votes"]
	}
	doc := MapMovieRow(row, rs)

	genres := make([]string, 0, len(j.Genres))
	for _, g := range j.Genres {
		genres = append(genres, g.Genre)
	}
	x := Expansion{
		Genres:     fetched(genres, nil),
		Cast:       skipped[movie.CastMember](),
		Characters: skipped[Character](),
		Directors:  skipped[movie.Credit](),
		Writers:    skipped[movie.Credit](),
		Titles:     skipped[movie.AltTitle](),
	}
	if doc.Rating.VoteCount() > 0 {
		var cast []movie.CastMember
		var chars []Character
		for _, c := range j.Cast {
			ord := asIntPtr(c.Ordering)
			m := movie.CastMember{PersonID: c.PersonID, Name: asString(c.Person.Name), Category: asString(c.Category)}
			if ord != nil {
				m.Ordering = *ord
			}
			cast = append(cast, m)
			for _, ch := range c.Characters {
				if ch.Name != nil {
					chars = append(chars, Character{PersonID: c.PersonID, Name: asString(ch.Name)})
				}
			}
		}
		x.Cast = fetched(cast, nil)
		x.Characters = fetched(chars, nil)
		x.Directors = fetched(credits(j.Directors), nil)
		x.Writers = fetched(credits(j.Writers), nil)

		var titles []movie.AltTitle
		for _, a := range j.AltTitles {
			titles = append(titles, movie.AltTitle{Title: asString(a.Title), Region: asStringPtr(a.Region), Language: asStringPtr(a.Language)})
		}
		x.Titles = fetched(titles, nil)
	}
	x.Apply(&doc)
	return doc
}

func credits(in []joinedCredit) []movie.Credit {
	out := make([]movie.Credit, 0, len(in))
	for _, c := range in {
		out = append(out, movie.Credit{PersonID: c.PersonID, Name: asString(c.Person.Name)})
	}
	return out
}

// Run rebuilds the target from the mirror in id batches.
func (r *Restructurer) Run(ctx context.Context) (sum Summary, err error) {
	start := time.Now()
	sum.Degraded = map[string]int64{}
	defer func() {
		sum.Elapsed = time.Since(start)
		metrics.RecordStep(r.Job, "restructure", err, sum.Elapsed)
	}()
	idBatch := r.IDBatch
	if idBatch <= 0 {
		idBatch = DefaultIDBatch
	}

	if r.Lock != nil {
		// The mirror collections must not be rebuilt while they are read.
		for _, key := range []string{docstore.MirrorLockKey, r.Sink.Name()} {
			release, lerr := r.Lock.Acquire(ctx, key)
			if lerr != nil {
				return sum, lerr
			}
			defer func() {
				if rerr := release(context.Background()); rerr != nil {
					r.Log.WithError(rerr).WithField("key", key).Warn("restructure: release run lock")
				}
			}()
		}
	}

	ids, err := r.movieIDs(ctx)
	if err != nil {
		return sum, err
	}
	sum.Read = int64(len(ids))
	names, err := r.DB.ListCollectionNames(ctx, bson.D{{Key: "name", Value: docstore.TitlesCollection}})
	if err != nil {
		return sum, fmt.Errorf("restructure: list collections: %w", err)
	}
	sum.AkasEnabled = len(names) > 0
	rs := schema.Canonical()
	movies := r.DB.Collection("movies")
	hasher := xxh3.New()

	docs := func(yield func(any, error) bool) {
		for lo := 0; lo < len(ids); lo += idBatch {
			hi := min(lo+idBatch, len(ids))
			cur, err := movies.Aggregate(ctx, RestructurePipeline(ids[lo:hi]), options.Aggregate().SetAllowDiskUse(true))
			if err != nil {
				yield(nil, fmt.Errorf("restructure: aggregate: %w", err))
				return
			}
			var batch []joinedMovie
			err = cur.All(ctx, &batch)
			if err != nil {
				yield(nil, fmt.Errorf("restructure: decode: %w", err))
				return
			}
			for _, j := range batch {
				doc := j.toDocument(rs)
				if doc.Rating.VoteCount() > 0 {
					sum.Expanded++
				}
				raw, err := bson.Marshal(doc)
				if err != nil {
					yield(nil, fmt.Errorf("restructure: encode %s: %w", doc.ID, err))
					return
				}
				_, _ = hasher.Write(raw)
				if !yield(bson.Raw(raw), nil) {
					return
				}
			}
		}
	}

	sum.Written, err = docstore.LoadDocuments(ctx, r.Sink, docs, docstore.LoadOptions{
		BatchSize: r.BatchSize,
		Total:     sum.Read,
		Progress:  r.Progress,
		Log:       r.Log,
		Job:       r.Job,
	})
	metrics.RecordRow(r.Job, "inserted", sum.Written)
	if err != nil {
		return sum, err
	}
	sum.Checksum = hasher.Sum64()
	r.Log.WithFields(logrus.Fields{
		"read": sum.Read, "written": sum.Written, "checksum": fmt.Sprintf("%016x", sum.Checksum),
	}).Info("restructure: done")
	return sum, nil
}

func (r *Restructurer) movieIDs(ctx context.Context) ([]string, error) {
	cur, err := r.DB.Collection("movies").Find(ctx,
		bson.D{{Key: "title_type", Value: "movie"}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}, {Key: "movie_id", Value: 1}}).
			SetSort(bson.D{{Key: "movie_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("restructure: list movies: %w", err)
	}
	var rows []struct {
		MovieID string `bson:"movie_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("restructure: list movies: %w", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.MovieID
	}
	return ids, nil
}
