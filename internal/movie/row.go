package movie

// Row is one relational row of movies left-joined to ratings, keyed by
// column name with raw driver values. The ColRatingKey entry holds the
// ratings side of the join key and is nil when no rating row exists.
type Row map[string]any

// Column names the mapper reads from a Row besides the resolved movie key.
const (
	ColTitleType     = "title_type"
	ColPrimaryTitle  = "primary_title"
	ColOriginalTitle = "original_title"
	ColIsAdult       = "is_adult"
	ColStartYear     = "start_year"
	ColEndYear       = "end_year"
	ColRuntime       = "runtime_minutes"
	ColRatingKey     = "rating_key"
	ColAverage       = "average_rating"
	ColVotes         = "num_votes"
)
