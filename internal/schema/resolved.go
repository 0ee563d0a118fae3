// Package schema discovers the concrete table and column names of a live
// relational source. Dataset revisions disagree on naming (movie_id vs
// tconst, primary_name vs primaryName), so every logical role is resolved
// against an ordered list of acceptable aliases once per run. The result is
// an immutable Resolved value that downstream components consume instead of
// probing the catalog themselves.
package schema

import (
	"errors"
	"fmt"
)

// ErrResolution reports that a required table or column could not be found.
// A run that gets this error must not write anything.
var ErrResolution = errors.New("schema resolution failed")

// Canonical column names used by the mirror collections and query plans.
const (
	CanonicalMovieKey   = "movie_id"
	CanonicalPersonKey  = "person_id"
	CanonicalPersonName = "primary_name"
)

// AkaConfig locates the alternate-title table. Region and Language are empty
// when the table has no such column.
type AkaConfig struct {
	Table      string
	ForeignKey string
	Title      string
	Region     string
	Language   string
}

// HasRegion reports whether a region column was found.
func (a AkaConfig) HasRegion() bool { return a.Region != "" }

// HasLanguage reports whether a language column was found.
func (a AkaConfig) HasLanguage() bool { return a.Language != "" }

// Resolved maps logical roles to the names found in the source.
type Resolved struct {
	movieKey   string
	personKey  string
	personName string
	aka        *AkaConfig
}

// NewResolved builds a Resolved directly. aka may be nil.
func NewResolved(movieKey, personKey, personName string, aka *AkaConfig) (*Resolved, error) {
	switch {
	case movieKey == "":
		return nil, fmt.Errorf("%w: movie key", ErrResolution)
	case personKey == "":
		return nil, fmt.Errorf("%w: person key", ErrResolution)
	case personName == "":
		return nil, fmt.Errorf("%w: person name", ErrResolution)
	}
	r := &Resolved{movieKey: movieKey, personKey: personKey, personName: personName}
	if aka != nil {
		cp := *aka
		r.aka = &cp
	}
	return r, nil
}

// Canonical returns the Resolved value of a source that already uses the
// canonical names and the fixed alternate-title table.
func Canonical() *Resolved {
	r, _ := NewResolved(CanonicalMovieKey, CanonicalPersonKey, CanonicalPersonName, &AkaConfig{
		Table: "titles", ForeignKey: CanonicalMovieKey, Title: "title", Region: "region", Language: "language",
	})
	return r
}

func (r *Resolved) MovieKey() string   { return r.movieKey }
func (r *Resolved) PersonKey() string  { return r.personKey }
func (r *Resolved) PersonName() string { return r.personName }

// Aka returns the alternate-title configuration and whether the feature is
// enabled for this run.
func (r *Resolved) Aka() (AkaConfig, bool) {
	if r.aka == nil {
		return AkaConfig{}, false
	}
	return *r.aka, true
}

// Renames returns source column -> canonical column for the given table,
// covering only columns whose live name differs from the canonical one.
func (r *Resolved) Renames(table string) map[string]string {
	out := map[string]string{}
	add := func(from, to string) {
		if from != "" && from != to {
			out[from] = to
		}
	}
	add(r.movieKey, CanonicalMovieKey)
	add(r.personKey, CanonicalPersonKey)
	if table == "persons" {
		add(r.personName, CanonicalPersonName)
	}
	if r.aka != nil && table == r.aka.Table {
		add(r.aka.ForeignKey, CanonicalMovieKey)
		add(r.aka.Title, "title")
		add(r.aka.Region, "region")
		add(r.aka.Language, "language")
	}
	return out
}

func (r *Resolved) String() string {
	s := fmt.Sprintf("movie_key=%s person_key=%s person_name=%s", r.movieKey, r.personKey, r.personName)
	if r.aka == nil {
		return s + " akas=disabled"
	}
	return s + fmt.Sprintf(" akas=%s(fk=%s title=%s region=%s language=%s)",
		r.aka.Table, r.aka.ForeignKey, r.aka.Title, orNone(r.aka.Region), orNone(r.aka.Language))
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
