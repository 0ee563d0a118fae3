package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config such as "mongo.uri".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func errorAt(path, msg string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(msg, args...)}
}

func warnAt(path, msg string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(msg, args...)}
}

// Validate performs static checks. It does not connect to anything.
func Validate(c Config) []Issue {
	var issues []Issue
	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, errorAt("job", "job must not be empty; it labels metrics and log lines"))
	}
	issues = append(issues, validateSource(c.Source)...)
	issues = append(issues, validateMongo(c.Mongo)...)
	if c.Collections.Movies == "" {
		issues = append(issues, errorAt("collections.movies", "target collection must not be empty"))
	}
	if c.Collections.Locks == "" {
		issues = append(issues, errorAt("collections.locks", "lock collection must not be empty"))
	}
	if c.Collections.Movies != "" && c.Collections.Movies == c.Collections.Locks {
		issues = append(issues, errorAt("collections.locks", "lock collection must differ from the target"))
	}
	issues = append(issues, validateRuntime(c.Runtime)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	issues = append(issues, validateLog(c.Log)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, errorAt("source.kind", "source.kind must not be empty"))
	}
	if !slices.Contains(relational.ListKinds(), s.Kind) {
		issues = append(issues, errorAt("source.kind", "unknown source kind %q (registered: %v)", s.Kind, relational.ListKinds()))
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, errorAt("source.dsn", "source.dsn must not be empty"))
	} else if s.Kind == "sqlite" && strings.Contains(s.DSN, ":memory:") {
		issues = append(issues, warnAt("source.dsn", "in-memory sqlite source starts empty"))
	}
	return issues
}

func validateMongo(m Mongo) []Issue {
	var issues []Issue
	if u, err := url.Parse(m.URI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
		issues = append(issues, errorAt("mongo.uri", "mongo.uri must be a mongodb:// or mongodb+srv:// URI"))
	}
	if strings.TrimSpace(m.Database) == "" {
		issues = append(issues, errorAt("mongo.database", "mongo.database must not be empty"))
	}
	if m.Timeout.Duration <= 0 {
		issues = append(issues, warnAt("mongo.timeout", "no timeout set; operations may block indefinitely"))
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.BatchSize <= 0 {
		issues = append(issues, errorAt("runtime.batch_size", "batch_size must be positive"))
	} else if r.BatchSize > 10000 {
		issues = append(issues, warnAt("runtime.batch_size", "batch_size %d is large; bulk writes may exceed message limits", r.BatchSize))
	}
	if r.IDBatch <= 0 {
		issues = append(issues, errorAt("runtime.id_batch", "id_batch must be positive"))
	}
	if r.LockTTL.Duration <= 0 {
		issues = append(issues, errorAt("runtime.lock_ttl", "lock_ttl must be positive"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.PushgatewayURL == "" {
			return []Issue{errorAt("metrics.pushgateway_url", "prometheus backend requires pushgateway_url")}
		}
	case "datadog":
		if m.DatadogAddr == "" {
			return []Issue{warnAt("metrics.datadog_addr", "datadog_addr empty; the client default agent address is used")}
		}
	default:
		return []Issue{errorAt("metrics.backend", "unknown metrics backend %q", m.Backend)}
	}
	return nil
}

func validateLog(l Log) []Issue {
	var issues []Issue
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, errorAt("log.format", "log.format must be text or json"))
	}
	switch strings.ToLower(l.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		issues = append(issues, errorAt("log.level", "unknown log level %q", l.Level))
	}
	return issues
}
