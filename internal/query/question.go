// Package query expresses the nine analytical questions three ways: as SQL
// against the relational source, as $lookup pipelines against the flat
// mirror collections, and as $unwind/$group pipelines against the
// materialized movies collection. All three render results into the same
// Row shape so they can be compared.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Question identifies one analytical question.
type Question int

const (
	Filmography Question = iota + 1
	TopByGenre
	MultiRole
	Collaborations
	PopularGenres
	Career
	RankByGenre
	Breakout
	FrenchLongHits
)

// All lists the questions in benchmark order.
var All = []Question{
	Filmography, TopByGenre, MultiRole, Collaborations, PopularGenres,
	Career, RankByGenre, Breakout, FrenchLongHits,
}

var questionNames = map[Question]string{
	Filmography:    "filmography",
	TopByGenre:     "top_by_genre",
	MultiRole:      "multi_role",
	Collaborations: "collaborations",
	PopularGenres:  "popular_genres",
	Career:         "career",
	RankByGenre:    "rank_by_genre",
	Breakout:       "breakout",
	FrenchLongHits: "french_long_hits",
}

func (q Question) Name() string {
	if n, ok := questionNames[q]; ok {
		return n
	}
	return "unknown"
}

// String renders "Q<n> <name>".
func (q Question) String() string { return fmt.Sprintf("Q%d %s", int(q), q.Name()) }

// Parse accepts "q3", "3" or "multi_role".
func Parse(s string) (Question, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(strings.TrimPrefix(s, "q")); err == nil {
		q := Question(n)
		if _, ok := questionNames[q]; ok {
			return q, nil
		}
	}
	for q, name := range questionNames {
		if name == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("query: unknown question %q", s)
}

// Thresholds shared by every rendition of a question.
const (
	TopVoteFloor      = 1000
	RankVoteFloor     = 5000
	BreakoutVotes     = 200000
	PopularMinAverage = 7.0
	PopularMinCount   = 50
	LongRuntime       = 120
	HighRating        = 8.0
	FrenchLanguage    = "fr"
	RankCutoff        = 3

	MultiRoleLimit      = 20
	CollaborationsLimit = 10
	BreakoutLimit       = 20
	FrenchLimit         = 20
)

// Params are the user inputs of the parameterized questions.
type Params struct {
	Person   string `json:"person"`
	Genre    string `json:"genre"`
	YearFrom int    `json:"year_from"`
	YearTo   int    `json:"year_to"`
	TopN     int    `json:"top_n"`
}

// DefaultParams mirrors the inputs used by the benchmark.
func DefaultParams() Params {
	return Params{Person: "Tom Hanks", Genre: "Drama", YearFrom: 1990, YearTo: 2000, TopN: 5}
}

func (p Params) topN() int {
	if p.TopN <= 0 {
		return 5
	}
	return p.TopN
}
