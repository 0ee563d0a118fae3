package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrLocked is returned when another run holds the lock for a target.
var ErrLocked = errors.New("target is locked by another run")

// Locker grants exclusive use of a target for the length of a run.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// RunLock is a Locker backed by sentinel documents: one document per key,
// with the key as _id, so the unique _id index provides mutual exclusion.
// A lock older than TTL is considered abandoned and may be taken over.
type RunLock struct {
	coll  *mongo.Collection
	ttl   time.Duration
	owner string
	now   func() time.Time
}

type lockDoc struct {
	Key        string    `bson:"_id"`
	Owner      string    `bson:"owner"`
	AcquiredAt time.Time `bson:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// NewRunLock stores locks in coll. Each RunLock gets a fresh owner token.
func NewRunLock(coll *mongo.Collection, ttl time.Duration) *RunLock {
	return &RunLock{coll: coll, ttl: ttl, owner: uuid.NewString(), now: time.Now}
}

// Owner returns the token written into held lock documents.
func (l *RunLock) Owner() string { return l.owner }

// Acquire takes the lock for key or returns ErrLocked.
func (l *RunLock) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	for attempt := 0; attempt < 2; attempt++ {
		now := l.now().UTC()
		_, err := l.coll.InsertOne(ctx, lockDoc{Key: key, Owner: l.owner, AcquiredAt: now, ExpiresAt: now.Add(l.ttl)})
		if err == nil {
			return func(ctx context.Context) error { return l.release(ctx, key) }, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("docstore: acquire lock %s: %w", key, err)
		}
		// Held. Take it over only if it has expired.
		res, err := l.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}, {Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now}}}})
		if err != nil {
			return nil, fmt.Errorf("docstore: clear stale lock %s: %w", key, err)
		}
		if res.DeletedCount == 0 {
			break
		}
	}
	return nil, fmt.Errorf("docstore: %s: %w", key, ErrLocked)
}

func (l *RunLock) release(ctx context.Context, key string) error {
	_, err := l.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}, {Key: "owner", Value: l.owner}})
	if err != nil {
		return fmt.Errorf("docstore: release lock %s: %w", key, err)
	}
	return nil
}
