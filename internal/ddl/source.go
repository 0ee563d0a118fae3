package ddl

// Source table names of the normalized movie catalog.
const (
	TableMovies      = "movies"
	TablePersons     = "persons"
	TableRatings     = "ratings"
	TableGenres      = "genres"
	TablePrincipals  = "principals"
	TableDirectors   = "directors"
	TableWriters     = "writers"
	TableTitles      = "titles"
	TableCharacters  = "characters"
	TableProfessions = "professions"
	TableKnownFor    = "known_for"
)

func text(name string) ColumnDef    { return ColumnDef{Name: name, SQLType: "TEXT", Nullable: true} }
func integer(name string) ColumnDef { return ColumnDef{Name: name, SQLType: "INTEGER", Nullable: true} }
func key(name string) ColumnDef     { return ColumnDef{Name: name, SQLType: "TEXT", PrimaryKey: true} }

// SourceTables returns the canonical 3NF layout of the source catalog, parents
// first. Column names are the canonical ones; live sources may use aliases
// (see internal/schema).
func SourceTables() []TableDef {
	return []TableDef{
		{Name: TableMovies, Columns: []ColumnDef{
			key("movie_id"), text("title_type"), text("primary_title"), text("original_title"),
			integer("is_adult"), integer("start_year"), integer("end_year"), integer("runtime_minutes"),
		}},
		{Name: TablePersons, Columns: []ColumnDef{
			key("person_id"), text("primary_name"), integer("birth_year"), integer("death_year"),
		}},
		{Name: TableRatings, Columns: []ColumnDef{
			key("movie_id"), {Name: "average_rating", SQLType: "REAL", Nullable: true}, integer("num_votes"),
		}},
		{Name: TableGenres, Columns: []ColumnDef{key("movie_id"), key("genre")}},
		{Name: TablePrincipals, Columns: []ColumnDef{
			key("movie_id"), key("person_id"), {Name: "ordering", SQLType: "INTEGER", PrimaryKey: true},
			text("category"), text("job"),
		}},
		{Name: TableDirectors, Columns: []ColumnDef{key("movie_id"), key("person_id")}},
		{Name: TableWriters, Columns: []ColumnDef{key("movie_id"), key("person_id")}},
		{Name: TableTitles, Columns: []ColumnDef{
			text("movie_id"), integer("ordering"), text("title"), text("region"), text("language"),
			text("types"), text("attributes"), integer("is_original_title"),
		}},
		{Name: TableCharacters, Columns: []ColumnDef{text("movie_id"), text("person_id"), text("character_name")}},
		{Name: TableProfessions, Columns: []ColumnDef{key("person_id"), key("job_name")}},
		{Name: TableKnownFor, Columns: []ColumnDef{key("person_id"), key("movie_id")}},
	}
}

// BenchmarkIndexes is the documented secondary index set the relational
// benchmark drops and recreates around each sweep.
func BenchmarkIndexes() []IndexDef {
	return []IndexDef{
		{Name: "idx_persons_name", Table: TablePersons, Columns: []string{"primary_name"}},
		{Name: "idx_genres_genre", Table: TableGenres, Columns: []string{"genre"}},
		{Name: "idx_genres_mid", Table: TableGenres, Columns: []string{"movie_id"}},
		{Name: "idx_movies_year", Table: TableMovies, Columns: []string{"start_year"}},
		{Name: "idx_chars_mid", Table: TableCharacters, Columns: []string{"movie_id"}},
		{Name: "idx_chars_pid", Table: TableCharacters, Columns: []string{"person_id"}},
		{Name: "idx_directors_mid", Table: TableDirectors, Columns: []string{"movie_id"}},
		{Name: "idx_directors_pid", Table: TableDirectors, Columns: []string{"person_id"}},
		{Name: "idx_ratings_mid", Table: TableRatings, Columns: []string{"movie_id"}},
		{Name: "idx_ratings_votes", Table: TableRatings, Columns: []string{"num_votes"}},
		{Name: "idx_ratings_avg", Table: TableRatings, Columns: []string{"average_rating"}},
		{Name: "idx_titles_mid", Table: TableTitles, Columns: []string{"movie_id"}},
		{Name: "idx_titles_lang", Table: TableTitles, Columns: []string{"language"}},
		{Name: "idx_principals_mid", Table: TablePrincipals, Columns: []string{"movie_id"}},
		{Name: "idx_principals_pid", Table: TablePrincipals, Columns: []string{"person_id"}},
	}
}
