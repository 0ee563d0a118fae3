// Package movie holds the document shapes produced by materialization and
// served by the read-side accessors.
package movie

// Rating is the point-in-time rating snapshot embedded in a Document. Either
// field may be null when the source row has a NULL.
type Rating struct {
	Average *float64 `bson:"average" json:"average"`
	Votes   *int64   `bson:"votes" json:"votes"`
}

// VoteCount returns the vote count, treating a missing rating or NULL votes as zero.
func (r *Rating) VoteCount() int64 {
	if r == nil || r.Votes == nil {
		return 0
	}
	return *r.Votes
}

// Credit is a {person_id, name} pair copied at materialization time.
type Credit struct {
	PersonID string `bson:"person_id" json:"person_id"`
	Name     string `bson:"name" json:"name"`
}

// CastMember is a cast credit with its billing order and the characters the
// person plays in the movie.
type CastMember struct {
	PersonID   string   `bson:"person_id" json:"person_id"`
	Name       string   `bson:"name" json:"name"`
	Category   string   `bson:"category" json:"category"`
	Ordering   int      `bson:"ordering" json:"ordering"`
	Characters []string `bson:"characters" json:"characters"`
}

// AltTitle is an alternate or localized title.
type AltTitle struct {
	Title    string  `bson:"title" json:"title"`
	Region   *string `bson:"region" json:"region"`
	Language *string `bson:"language" json:"language"`
}

// Document is one entry of the denormalized movies collection. Relationship
// slices are always non-nil so they encode as empty arrays.
type Document struct {
	ID            string       `bson:"_id" json:"id"`
	Title         string       `bson:"title" json:"title"`
	OriginalTitle *string      `bson:"original_title" json:"original_title"`
	TitleType     string       `bson:"title_type" json:"title_type"`
	SortTitle     string       `bson:"sort_title" json:"-"`
	Year          *int         `bson:"year" json:"year"`
	EndYear       *int         `bson:"end_year" json:"end_year"`
	Runtime       *int         `bson:"runtime" json:"runtime"`
	IsAdult       bool         `bson:"is_adult" json:"is_adult"`
	Rating        *Rating      `bson:"rating" json:"rating"`
	Genres        []string     `bson:"genres" json:"genres"`
	Cast          []CastMember `bson:"cast" json:"cast"`
	Directors     []Credit     `bson:"directors" json:"directors"`
	Writers       []Credit     `bson:"writers" json:"writers"`
	Titles        []AltTitle   `bson:"titles" json:"titles"`
}

// Summary is the compact movie shape used by listings.
type Summary struct {
	ID     string   `bson:"_id" json:"id"`
	Title  string   `bson:"title" json:"title"`
	Year   *int     `bson:"year" json:"year"`
	Rating *Rating  `bson:"rating" json:"rating"`
	Genres []string `bson:"genres" json:"genres"`
}
