package query

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FlattenedCollection is the default materialized collection.
const FlattenedCollection = "movies_complete"

// Pipeline is an aggregation to run against Collection.
type Pipeline struct {
	Collection string
	Stages     mongo.Pipeline
}

type obj = bson.M

func stage(op string, v any) bson.D { return bson.D{{Key: op, Value: v}} }

// nameRegex matches s as a case-insensitive literal substring.
func nameRegex(s string) bson.M {
	return obj{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func lookupOn(from, local, foreign, as string) bson.D {
	return stage("$lookup", obj{"from": from, "localField": local, "foreignField": foreign, "as": as})
}

func unwind(path string) bson.D { return stage("$unwind", "$"+path) }

func first(path string) bson.M { return obj{"$arrayElemAt": bson.A{"$" + path, 0}} }

var acting = obj{"$in": bson.A{"actor", "actress"}}

// project maps the named source expressions onto the Row fields.
func project(fields bson.D) bson.D {
	return stage("$project", append(bson.D{{Key: "_id", Value: 0}}, fields...))
}

// actorMovies starts at persons and yields one {_id: movie_id, m: movie}
// document per feature film the matching actors appear in.
func actorMovies(person string) mongo.Pipeline {
	return mongo.Pipeline{
		stage("$match", obj{"primary_name": nameRegex(person)}),
		lookupOn("principals", "person_id", "person_id", "c"),
		unwind("c"),
		stage("$match", obj{"c.category": acting}),
		stage("$group", obj{"_id": "$c.movie_id"}),
		lookupOn("movies", "_id", "movie_id", "m"),
		unwind("m"),
		stage("$match", obj{"m.title_type": "movie"}),
	}
}

// NormalizedPipeline renders q against the flat mirror collections. Joins
// are $lookup stages on the canonical key names.
func NormalizedPipeline(q Question, p Params) (Pipeline, error) {
	switch q {
	case Filmography:
		s := append(actorMovies(p.Person),
			lookupOn("ratings", "_id", "movie_id", "r"),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: "$m.primary_title"},
				{Key: "year", Value: "$m.start_year"}, {Key: "value", Value: first("r.average_rating")},
			}),
			stage("$sort", bson.D{{Key: "year", Value: -1}, {Key: "key", Value: 1}}),
		)
		return Pipeline{"persons", s}, nil

	case TopByGenre:
		return Pipeline{"genres", mongo.Pipeline{
			stage("$match", obj{"genre": p.Genre}),
			lookupOn("movies", "movie_id", "movie_id", "m"),
			unwind("m"),
			stage("$match", obj{"m.title_type": "movie", "m.start_year": obj{"$gte": p.YearFrom, "$lte": p.YearTo}}),
			lookupOn("ratings", "movie_id", "movie_id", "r"),
			unwind("r"),
			stage("$match", obj{"r.num_votes": obj{"$gt": TopVoteFloor}}),
			stage("$sort", bson.D{{Key: "r.average_rating", Value: -1}, {Key: "movie_id", Value: 1}}),
			stage("$limit", p.topN()),
			project(bson.D{
				{Key: "key", Value: "$movie_id"}, {Key: "group", Value: "$genre"},
				{Key: "label", Value: "$m.primary_title"}, {Key: "year", Value: "$m.start_year"},
				{Key: "count", Value: "$r.num_votes"}, {Key: "value", Value: "$r.average_rating"},
			}),
		}}, nil

	case MultiRole:
		return Pipeline{"characters", mongo.Pipeline{
			stage("$match", obj{"character_name": obj{"$ne": nil}}),
			stage("$group", obj{"_id": obj{"m": "$movie_id", "p": "$person_id"}, "count": obj{"$sum": 1}}),
			stage("$match", obj{"count": obj{"$gt": 1}}),
			lookupOn("movies", "_id.m", "movie_id", "movie"),
			unwind("movie"),
			stage("$match", obj{"movie.title_type": "movie"}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id.m", Value: 1}, {Key: "_id.p", Value: 1}}),
			stage("$limit", MultiRoleLimit),
			lookupOn("persons", "_id.p", "person_id", "person"),
			project(bson.D{
				{Key: "key", Value: "$_id.m"}, {Key: "group", Value: "$_id.p"},
				{Key: "label", Value: first("person.primary_name")}, {Key: "count", Value: "$count"},
			}),
		}}, nil

	case Collaborations:
		s := append(actorMovies(p.Person),
			lookupOn("directors", "_id", "movie_id", "d"),
			unwind("d"),
			stage("$group", obj{"_id": "$d.person_id", "movies": obj{"$addToSet": "$_id"}}),
			stage("$addFields", obj{"count": obj{"$size": "$movies"}}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}),
			stage("$limit", CollaborationsLimit),
			lookupOn("persons", "_id", "person_id", "person"),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: first("person.primary_name")},
				{Key: "count", Value: "$count"},
			}),
		)
		return Pipeline{"persons", s}, nil

	case PopularGenres:
		return Pipeline{"genres", mongo.Pipeline{
			lookupOn("ratings", "movie_id", "movie_id", "r"),
			unwind("r"),
			lookupOn("movies", "movie_id", "movie_id", "m"),
			unwind("m"),
			stage("$match", obj{"m.title_type": "movie"}),
			stage("$group", obj{"_id": "$genre", "value": obj{"$avg": "$r.average_rating"}, "count": obj{"$sum": 1}}),
			stage("$match", obj{"value": obj{"$gt": PopularMinAverage}, "count": obj{"$gt": PopularMinCount}}),
			stage("$sort", bson.D{{Key: "value", Value: -1}, {Key: "_id", Value: 1}}),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: "$_id"},
				{Key: "count", Value: "$count"}, {Key: "value", Value: "$value"},
			}),
		}}, nil

	case Career:
		s := append(actorMovies(p.Person),
			stage("$match", obj{"m.start_year": obj{"$ne": nil}}),
			lookupOn("ratings", "_id", "movie_id", "r"),
			stage("$group", obj{
				"_id":   decade("$m.start_year"),
				"count": obj{"$sum": 1},
				"value": obj{"$avg": first("r.average_rating")},
			}),
			stage("$sort", bson.D{{Key: "_id", Value: 1}}),
			project(bson.D{{Key: "year", Value: "$_id"}, {Key: "count", Value: "$count"}, {Key: "value", Value: "$value"}}),
		)
		return Pipeline{"persons", s}, nil

	case RankByGenre:
		return Pipeline{"ratings", mongo.Pipeline{
			stage("$match", obj{"num_votes": obj{"$gt": RankVoteFloor}}),
			lookupOn("movies", "movie_id", "movie_id", "m"),
			unwind("m"),
			stage("$match", obj{"m.title_type": "movie"}),
			lookupOn("genres", "movie_id", "movie_id", "g"),
			unwind("g"),
			rankWithin("$g.genre", "average_rating"),
			stage("$match", obj{"rank": obj{"$lte": RankCutoff}}),
			stage("$sort", bson.D{{Key: "g.genre", Value: 1}, {Key: "rank", Value: 1}, {Key: "movie_id", Value: 1}}),
			project(bson.D{
				{Key: "key", Value: "$movie_id"}, {Key: "group", Value: "$g.genre"},
				{Key: "label", Value: "$m.primary_title"}, {Key: "year", Value: "$m.start_year"},
				{Key: "count", Value: "$num_votes"}, {Key: "value", Value: "$average_rating"},
				{Key: "rank", Value: "$rank"},
			}),
		}}, nil

	case Breakout:
		return Pipeline{"ratings", mongo.Pipeline{
			stage("$match", obj{"num_votes": obj{"$gt": BreakoutVotes}}),
			lookupOn("movies", "movie_id", "movie_id", "m"),
			unwind("m"),
			stage("$match", obj{"m.title_type": "movie", "m.start_year": obj{"$ne": nil}}),
			lookupOn("principals", "movie_id", "movie_id", "c"),
			unwind("c"),
			stage("$match", obj{"c.category": acting}),
			stage("$sort", bson.D{{Key: "m.start_year", Value: 1}, {Key: "movie_id", Value: 1}}),
			stage("$group", obj{
				"_id":   "$c.person_id",
				"movie": obj{"$first": "$movie_id"},
				"year":  obj{"$first": "$m.start_year"},
				"count": obj{"$first": "$num_votes"},
			}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}),
			stage("$limit", BreakoutLimit),
			lookupOn("persons", "_id", "person_id", "person"),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "group", Value: "$movie"},
				{Key: "label", Value: first("person.primary_name")},
				{Key: "year", Value: "$year"}, {Key: "count", Value: "$count"},
			}),
		}}, nil

	case FrenchLongHits:
		return Pipeline{"movies", mongo.Pipeline{
			stage("$match", obj{"title_type": "movie", "runtime_minutes": obj{"$gt": LongRuntime}}),
			lookupOn("ratings", "movie_id", "movie_id", "r"),
			unwind("r"),
			stage("$match", obj{"r.average_rating": obj{"$gt": HighRating}}),
			lookupOn("titles", "movie_id", "movie_id", "t"),
			stage("$match", obj{"t.language": FrenchLanguage}),
			stage("$sort", bson.D{{Key: "movie_id", Value: 1}}),
			stage("$limit", FrenchLimit),
			project(bson.D{
				{Key: "key", Value: "$movie_id"}, {Key: "label", Value: "$primary_title"},
				{Key: "year", Value: "$start_year"}, {Key: "count", Value: "$runtime_minutes"},
				{Key: "value", Value: "$r.average_rating"},
			}),
		}}, nil
	}
	return Pipeline{}, fmt.Errorf("query: unknown question %d", int(q))
}

// decade renders floor(year/10)*10 as an integer.
func decade(year string) bson.M {
	return obj{"$toInt": obj{"$multiply": bson.A{obj{"$floor": obj{"$divide": bson.A{year, 10}}}, 10}}}
}

// rankWithin adds a standard "rank" field over field descending within each
// partition. Needs $setWindowFields (MongoDB 5.0+).
func rankWithin(partition, field string) bson.D {
	return stage("$setWindowFields", bson.D{
		{Key: "partitionBy", Value: partition},
		{Key: "sortBy", Value: bson.D{{Key: field, Value: -1}}},
		{Key: "output", Value: obj{"rank": obj{"$rank": obj{}}}},
	})
}
