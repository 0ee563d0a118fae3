package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpec is a named index definition. Names are explicit so creation and
// removal can be checked against the live index list.
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
}

func asc(field string) bson.D { return bson.D{{Key: field, Value: 1}} }

// MaterializedIndexes is the index set of the denormalized movies
// collection. The movie key is the _id field, whose unique index MongoDB
// always maintains.
func MaterializedIndexes() []IndexSpec {
	return []IndexSpec{
		{Name: "year_1", Keys: asc("year")},
		{Name: "genres_1", Keys: asc("genres")},
		{Name: "rating.votes_1", Keys: asc("rating.votes")},
		{Name: "rating.average_1", Keys: asc("rating.average")},
		{Name: "cast.person_id_1", Keys: asc("cast.person_id")},
		{Name: "cast.name_1", Keys: asc("cast.name")},
	}
}

// MirrorIndexes is the index set of the flat mirror collections, keyed by
// collection name.
func MirrorIndexes() map[string][]IndexSpec {
	return map[string][]IndexSpec{
		"persons":    {{Name: "primary_name_1", Keys: asc("primary_name")}, {Name: "person_id_1", Keys: asc("person_id")}},
		"movies":     {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "start_year_1", Keys: asc("start_year")}},
		"principals": {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "person_id_1", Keys: asc("person_id")}},
		"genres":     {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "genre_1", Keys: asc("genre")}},
		"ratings": {
			{Name: "movie_id_1", Keys: asc("movie_id")},
			{Name: "num_votes_1", Keys: asc("num_votes")},
			{Name: "average_rating_1", Keys: asc("average_rating")},
		},
		"characters": {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "person_id_1", Keys: asc("person_id")}},
		"directors":  {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "person_id_1", Keys: asc("person_id")}},
		"writers":    {{Name: "movie_id_1", Keys: asc("movie_id")}},
		"titles":     {{Name: "movie_id_1", Keys: asc("movie_id")}, {Name: "language_1", Keys: asc("language")}},
	}
}

// IndexNames lists the names of the indexes present on coll.
func IndexNames(ctx context.Context, coll *mongo.Collection) (map[string]bool, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var specs []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &specs); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(specs))
	for _, s := range specs {
		out[s.Name] = true
	}
	return out, nil
}

// EnsureIndexes creates the indexes of specs that are missing on coll. It is
// a no-op when all of them already exist.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, specs []IndexSpec) error {
	have, err := IndexNames(ctx, coll)
	if err != nil {
		return fmt.Errorf("docstore: list indexes on %s: %w", coll.Name(), err)
	}
	var models []mongo.IndexModel
	for _, s := range specs {
		if have[s.Name] {
			continue
		}
		opts := options.Index().SetName(s.Name)
		if s.Unique {
			opts.SetUnique(true)
		}
		models = append(models, mongo.IndexModel{Keys: s.Keys, Options: opts})
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("docstore: create indexes on %s: %w", coll.Name(), err)
	}
	return nil
}

// DropIndexes removes the indexes of specs that exist on coll. Absent
// indexes are skipped.
func DropIndexes(ctx context.Context, coll *mongo.Collection, specs []IndexSpec) error {
	have, err := IndexNames(ctx, coll)
	if err != nil {
		return fmt.Errorf("docstore: list indexes on %s: %w", coll.Name(), err)
	}
	for _, s := range specs {
		if !have[s.Name] {
			continue
		}
		if _, err := coll.Indexes().DropOne(ctx, s.Name); err != nil {
			return fmt.Errorf("docstore: drop index %s on %s: %w", s.Name, coll.Name(), err)
		}
	}
	return nil
}
