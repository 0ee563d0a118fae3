package relational

import (
	"context"
	"strings"
	"testing"
)

func TestRegisterAndOpen(t *testing.T) {
	t.Parallel()

	want := &Source{Dialect: SQLite}
	Register("fake", func(ctx context.Context, cfg Config) (*Source, error) {
		if cfg.DSN != "dsn" {
			t.Errorf("DSN = %q, want dsn", cfg.DSN)
		}
		return want, nil
	})

	got, err := Open(context.Background(), Config{Kind: "fake", DSN: "dsn"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got != want {
		t.Fatalf("Open returned %p, want %p", got, want)
	}

	found := false
	for _, k := range ListKinds() {
		if k == "fake" {
			found = true
		}
	}
	if !found {
		t.Fatalf("registered kind missing from ListKinds: %v", ListKinds())
	}
}

func TestOpenUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Kind: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unsupported source.kind=nope") {
		t.Fatalf("err = %v, want unsupported kind", err)
	}
}

func TestOpenDBRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := OpenDB(context.Background(), "sqlite", "  ", SQLite); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
