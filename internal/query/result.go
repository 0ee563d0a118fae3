package query

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUnsupported marks a plan the target store cannot execute.
var ErrUnsupported = errors.New("query: unsupported by target")

// Row is the shape every rendition projects to. Columns a question does not
// use stay zero.
//
//	Filmography     Key=movie  Label=title  Year  Value=rating
//	TopByGenre      Key=movie  Group=genre  Label=title  Year  Count=votes  Value=rating
//	MultiRole       Key=movie  Group=person  Label=name  Count=characters
//	Collaborations  Key=director  Label=name  Count=movies
//	PopularGenres   Key=genre  Label=genre  Count=movies  Value=avg rating
//	Career          Year=decade  Count=movies  Value=avg rating
//	RankByGenre     Key=movie  Group=genre  Label=title  Year  Count=votes  Value=rating  Rank
//	Breakout        Key=person  Group=movie  Label=name  Year  Count=votes
//	FrenchLongHits  Key=movie  Label=title  Year  Count=runtime  Value=rating
type Row struct {
	Key   string   `bson:"key" json:"key,omitempty"`
	Group string   `bson:"group" json:"group,omitempty"`
	Label string   `bson:"label" json:"label,omitempty"`
	Year  *int     `bson:"year" json:"year,omitempty"`
	Count int64    `bson:"count" json:"count,omitempty"`
	Value *float64 `bson:"value" json:"value,omitempty"`
	Rank  int64    `bson:"rank" json:"rank,omitempty"`
}

// Result is the outcome of one question against one target.
type Result struct {
	Question    Question      `json:"question"`
	Target      string        `json:"target"`
	Rows        []Row         `json:"rows"`
	Unsupported bool          `json:"unsupported,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// 40324 is an unknown pipeline stage, 168 an unknown expression operator.
var unsupportedCodes = map[int32]bool{40324: true, 168: true}

// IsUnsupported reports whether err means the store lacks a feature the
// plan needs, as opposed to a runtime fault.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupported) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && unsupportedCodes[ce.Code] {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Unrecognized pipeline stage") ||
		strings.Contains(msg, "Unrecognized expression")
}
