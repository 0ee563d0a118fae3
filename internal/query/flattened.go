package query

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func castMatches(person string) bson.M {
	return obj{"cast": obj{"$elemMatch": obj{"name": nameRegex(person)}}}
}

// FlattenedPipeline renders q against the materialized collection. No joins
// are needed: cast, crew, genres and titles are embedded.
func FlattenedPipeline(q Question, p Params) (Pipeline, error) {
	var s mongo.Pipeline
	switch q {
	case Filmography:
		s = mongo.Pipeline{
			stage("$match", castMatches(p.Person)),
			stage("$sort", bson.D{{Key: "year", Value: -1}, {Key: "_id", Value: 1}}),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: "$title"},
				{Key: "year", Value: "$year"}, {Key: "value", Value: "$rating.average"},
			}),
		}

	case TopByGenre:
		s = mongo.Pipeline{
			stage("$match", obj{
				"genres":       p.Genre,
				"year":         obj{"$gte": p.YearFrom, "$lte": p.YearTo},
				"rating.votes": obj{"$gt": TopVoteFloor},
			}),
			stage("$sort", bson.D{{Key: "rating.average", Value: -1}, {Key: "_id", Value: 1}}),
			stage("$limit", p.topN()),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "group", Value: obj{"$literal": p.Genre}},
				{Key: "label", Value: "$title"}, {Key: "year", Value: "$year"},
				{Key: "count", Value: "$rating.votes"}, {Key: "value", Value: "$rating.average"},
			}),
		}

	case MultiRole:
		s = mongo.Pipeline{
			unwind("cast"),
			stage("$group", obj{
				"_id":   obj{"m": "$_id", "p": "$cast.person_id"},
				"label": obj{"$first": "$cast.name"},
				"count": obj{"$max": obj{"$size": "$cast.characters"}},
			}),
			stage("$match", obj{"count": obj{"$gt": 1}}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id.m", Value: 1}, {Key: "_id.p", Value: 1}}),
			stage("$limit", MultiRoleLimit),
			project(bson.D{
				{Key: "key", Value: "$_id.m"}, {Key: "group", Value: "$_id.p"},
				{Key: "label", Value: "$label"}, {Key: "count", Value: "$count"},
			}),
		}

	case Collaborations:
		s = mongo.Pipeline{
			stage("$match", castMatches(p.Person)),
			unwind("directors"),
			stage("$group", obj{
				"_id":    "$directors.person_id",
				"label":  obj{"$first": "$directors.name"},
				"movies": obj{"$addToSet": "$_id"},
			}),
			stage("$addFields", obj{"count": obj{"$size": "$movies"}}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}),
			stage("$limit", CollaborationsLimit),
			project(bson.D{{Key: "key", Value: "$_id"}, {Key: "label", Value: "$label"}, {Key: "count", Value: "$count"}}),
		}

	case PopularGenres:
		s = mongo.Pipeline{
			stage("$match", obj{"rating": obj{"$ne": nil}}),
			unwind("genres"),
			stage("$group", obj{"_id": "$genres", "value": obj{"$avg": "$rating.average"}, "count": obj{"$sum": 1}}),
			stage("$match", obj{"value": obj{"$gt": PopularMinAverage}, "count": obj{"$gt": PopularMinCount}}),
			stage("$sort", bson.D{{Key: "value", Value: -1}, {Key: "_id", Value: 1}}),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: "$_id"},
				{Key: "count", Value: "$count"}, {Key: "value", Value: "$value"},
			}),
		}

	case Career:
		match := castMatches(p.Person)
		match["year"] = obj{"$ne": nil}
		s = mongo.Pipeline{
			stage("$match", match),
			stage("$group", obj{"_id": decade("$year"), "count": obj{"$sum": 1}, "value": obj{"$avg": "$rating.average"}}),
			stage("$sort", bson.D{{Key: "_id", Value: 1}}),
			project(bson.D{{Key: "year", Value: "$_id"}, {Key: "count", Value: "$count"}, {Key: "value", Value: "$value"}}),
		}

	case RankByGenre:
		s = mongo.Pipeline{
			stage("$match", obj{"rating.votes": obj{"$gt": RankVoteFloor}}),
			unwind("genres"),
			rankWithin("$genres", "rating.average"),
			stage("$match", obj{"rank": obj{"$lte": RankCutoff}}),
			stage("$sort", bson.D{{Key: "genres", Value: 1}, {Key: "rank", Value: 1}, {Key: "_id", Value: 1}}),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "group", Value: "$genres"},
				{Key: "label", Value: "$title"}, {Key: "year", Value: "$year"},
				{Key: "count", Value: "$rating.votes"}, {Key: "value", Value: "$rating.average"},
				{Key: "rank", Value: "$rank"},
			}),
		}

	case Breakout:
		s = mongo.Pipeline{
			stage("$match", obj{"rating.votes": obj{"$gt": BreakoutVotes}, "year": obj{"$ne": nil}}),
			unwind("cast"),
			stage("$sort", bson.D{{Key: "year", Value: 1}, {Key: "_id", Value: 1}}),
			stage("$group", obj{
				"_id":   "$cast.person_id",
				"label": obj{"$first": "$cast.name"},
				"movie": obj{"$first": "$_id"},
				"year":  obj{"$first": "$year"},
				"count": obj{"$first": "$rating.votes"},
			}),
			stage("$sort", bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}),
			stage("$limit", BreakoutLimit),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "group", Value: "$movie"},
				{Key: "label", Value: "$label"}, {Key: "year", Value: "$year"}, {Key: "count", Value: "$count"},
			}),
		}

	case FrenchLongHits:
		s = mongo.Pipeline{
			stage("$match", obj{
				"runtime":         obj{"$gt": LongRuntime},
				"rating.average":  obj{"$gt": HighRating},
				"titles.language": FrenchLanguage,
			}),
			stage("$sort", bson.D{{Key: "_id", Value: 1}}),
			stage("$limit", FrenchLimit),
			project(bson.D{
				{Key: "key", Value: "$_id"}, {Key: "label", Value: "$title"},
				{Key: "year", Value: "$year"}, {Key: "count", Value: "$runtime"},
				{Key: "value", Value: "$rating.average"},
			}),
		}

	default:
		return Pipeline{}, fmt.Errorf("query: unknown question %d", int(q))
	}
	return Pipeline{FlattenedCollection, s}, nil
}
