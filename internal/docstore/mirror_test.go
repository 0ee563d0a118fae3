package docstore

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

type keyLock struct {
	err      error
	acquired []string
}

func (l *keyLock) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.acquired = append(l.acquired, key)
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error { return nil }, nil
}

func TestMirrorTakesRunLockFirst(t *testing.T) {
	t.Parallel()
	log, _ := logtest.NewNullLogger()
	lock := &keyLock{err: ErrLocked}

	// No source or database: a held lock must stop the run before either is used.
	_, err := (&Mirror{Lock: lock, Log: log}).Run(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
	if len(lock.acquired) != 1 || lock.acquired[0] != MirrorLockKey {
		t.Fatalf("acquired = %v, want [%s]", lock.acquired, MirrorLockKey)
	}
}
