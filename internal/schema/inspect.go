package schema

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Catalog is the read-only view of a relational catalog the inspector needs.
type Catalog interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]string, error)
}

// Candidate aliases per role, in priority order.
var (
	MovieKeyCandidates   = []string{"movie_id", "tconst"}
	PersonKeyCandidates  = []string{"person_id", "nconst"}
	PersonNameCandidates = []string{"primary_name", "primaryName", "name"}

	AkaTableCandidates    = []string{"akas", "title_akas", "movie_akas", "titles"}
	AkaFKCandidates       = []string{"movie_id", "titleId", "tconst"}
	AkaTitleCandidates    = []string{"title", "titleName", "primary_title"}
	AkaRegionCandidates   = []string{"region", "regionName", "area"}
	AkaLanguageCandidates = []string{"language", "lang", "languageCode"}
)

// RequiredTables must exist for a materialization run to start.
var RequiredTables = []string{"movies", "ratings", "genres", "principals", "directors", "writers", "persons"}

// Resolve returns the first candidate column present in table. A missing
// table or a catalog error yields ("", false); callers decide the fallback.
func Resolve(ctx context.Context, cat Catalog, table string, candidates ...string) (string, bool) {
	cols, err := cat.Columns(ctx, table)
	if err != nil || len(cols) == 0 {
		return "", false
	}
	return firstMatch(cols, candidates)
}

func firstMatch(have, candidates []string) (string, bool) {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := set[c]; ok {
			return c, true
		}
	}
	return "", false
}

// DetectAkaConfig picks the first alternate-title table that exists and
// resolves its columns. It returns nil, after logging a warning, when no
// table matches or the matched table lacks a foreign key or title column.
func DetectAkaConfig(ctx context.Context, cat Catalog, log logrus.FieldLogger) *AkaConfig {
	tables, err := cat.Tables(ctx)
	if err != nil {
		log.WithError(err).Warn("schema: cannot list tables; alternate titles disabled")
		return nil
	}
	table, ok := firstMatch(tables, AkaTableCandidates)
	if !ok {
		log.WithField("candidates", AkaTableCandidates).Warn("schema: no alternate-title table; alternate titles disabled")
		return nil
	}

	fk, okFK := Resolve(ctx, cat, table, AkaFKCandidates...)
	title, okTitle := Resolve(ctx, cat, table, AkaTitleCandidates...)
	if !okFK || !okTitle {
		log.WithField("table", table).Warn("schema: alternate-title table found but key columns missing; alternate titles disabled")
		return nil
	}
	region, _ := Resolve(ctx, cat, table, AkaRegionCandidates...)
	language, _ := Resolve(ctx, cat, table, AkaLanguageCandidates...)

	cfg := &AkaConfig{Table: table, ForeignKey: fk, Title: title, Region: region, Language: language}
	log.WithFields(logrus.Fields{
		"table": table, "fk": fk, "title": title, "region": orNone(region), "language": orNone(language),
	}).Info("schema: alternate titles detected")
	return cfg
}

// Inspect resolves every role needed by a run. Missing required tables or
// columns produce an error wrapping ErrResolution.
func Inspect(ctx context.Context, cat Catalog, log logrus.FieldLogger) (*Resolved, error) {
	tables, err := cat.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrResolution, err)
	}
	have := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		have[t] = struct{}{}
	}
	for _, t := range RequiredTables {
		if _, ok := have[t]; !ok {
			return nil, fmt.Errorf("%w: table %q not found", ErrResolution, t)
		}
	}

	movieKey, ok := Resolve(ctx, cat, "movies", MovieKeyCandidates...)
	if !ok {
		return nil, fmt.Errorf("%w: movies has none of %v", ErrResolution, MovieKeyCandidates)
	}
	personKey, ok := Resolve(ctx, cat, "persons", PersonKeyCandidates...)
	if !ok {
		return nil, fmt.Errorf("%w: persons has none of %v", ErrResolution, PersonKeyCandidates)
	}
	personName, ok := Resolve(ctx, cat, "persons", PersonNameCandidates...)
	if !ok {
		return nil, fmt.Errorf("%w: persons has none of %v", ErrResolution, PersonNameCandidates)
	}

	rs, err := NewResolved(movieKey, personKey, personName, DetectAkaConfig(ctx, cat, log))
	if err != nil {
		return nil, err
	}
	log.WithField("schema", rs.String()).Info("schema: resolved")
	return rs, nil
}
