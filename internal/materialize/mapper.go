package materialize

import (
	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// MapMovieRow builds the document skeleton for one movie row. It performs no
// I/O. The rating is nil when the join found no rating row, so a missing
// rating never reads as zero. Relationship slices start empty.
func MapMovieRow(row movie.Row, rs *schema.Resolved) movie.Document {
	title := asString(row[movie.ColPrimaryTitle])
	doc := movie.Document{
		ID:            asString(row[rs.MovieKey()]),
		Title:         title,
		OriginalTitle: asStringPtr(row[movie.ColOriginalTitle]),
		TitleType:     asString(row[movie.ColTitleType]),
		SortTitle:     SortKey(title),
		Year:          asIntPtr(row[movie.ColStartYear]),
		EndYear:       asIntPtr(row[movie.ColEndYear]),
		Runtime:       asIntPtr(row[movie.ColRuntime]),
		IsAdult:       truthy(row[movie.ColIsAdult]),
		Genres:        []string{},
		Cast:          []movie.CastMember{},
		Directors:     []movie.Credit{},
		Writers:       []movie.Credit{},
		Titles:        []movie.AltTitle{},
	}
	if row[movie.ColRatingKey] != nil {
		doc.Rating = &movie.Rating{
			Average: asFloatPtr(row[movie.ColAverage]),
			Votes:   asInt64Ptr(row[movie.ColVotes]),
		}
	}
	return doc
}
