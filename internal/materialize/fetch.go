package materialize

// Status is the outcome of one relationship lookup.
type Status int

const (
	// StatusSkipped means no query was issued (materiality threshold not met
	// or feature disabled).
	StatusSkipped Status = iota
	// StatusOK means the lookup succeeded and returned rows.
	StatusOK
	// StatusEmpty means the lookup succeeded with no rows.
	StatusEmpty
	// StatusFailed means the lookup errored; Items is empty and Err is set.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetch is the result of one relationship lookup. Items is never nil.
type Fetch[T any] struct {
	Status Status
	Items  []T
	Err    error
}

func fetched[T any](items []T, err error) Fetch[T] {
	switch {
	case err != nil:
		return Fetch[T]{Status: StatusFailed, Items: []T{}, Err: err}
	case len(items) == 0:
		return Fetch[T]{Status: StatusEmpty, Items: []T{}}
	default:
		return Fetch[T]{Status: StatusOK, Items: items}
	}
}

func skipped[T any]() Fetch[T] {
	return Fetch[T]{Status: StatusSkipped, Items: []T{}}
}
