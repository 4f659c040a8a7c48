// Package entitystore provides a heterogeneous container keyed by a
// unique identifier and the static type of the stored value. It is the
// simulation's memory: events look entities up by UID and mutate them
// in place; nothing outside the owning server goroutine touches it.
package entitystore

import (
	"crypto/rand"
	"encoding/binary"
	"reflect"

	"github.com/pkg/errors"
)

// UID identifies one entity within a single Store, scoped to the static
// type it was added under. A UID minted for one type carries no meaning
// for another.
type UID uint64

var errTypeMismatch = errors.New("entitystore: value stored under incorrect type information")

// Store is a registry of one shard per distinct value type, each
// mapping UID to a stored value. The zero value is ready to use.
type Store struct {
	shards map[reflect.Type]map[UID]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{shards: make(map[reflect.Type]map[UID]any)}
}

func shardFor[V any](s *Store) map[UID]any {
	if s.shards == nil {
		s.shards = make(map[reflect.Type]map[UID]any)
	}
	ty := reflect.TypeOf((*V)(nil)).Elem()
	shard, ok := s.shards[ty]
	if !ok {
		shard = make(map[UID]any)
		s.shards[ty] = shard
	}
	return shard
}

// Insert stores value under uid for type V, returning the prior value at
// that key, if any. Insert partitions its key space per type: a given
// uid may simultaneously hold a value for type V and an unrelated value
// for type W.
func Insert[V any](s *Store, uid UID, value V) (V, bool) {
	shard := shardFor[V](s)
	prior, had := shard[uid]
	ptr := new(V)
	*ptr = value
	shard[uid] = ptr
	if !had {
		var zero V
		return zero, false
	}
	return *unbox[V](prior), true
}

// Add stores value under a freshly minted UID for type V and returns
// that UID.
func Add[V any](s *Store, value V) UID {
	shard := shardFor[V](s)
	uid := newUID(shard)
	ptr := new(V)
	*ptr = value
	shard[uid] = ptr
	return uid
}

// Get returns a pointer to the value stored under uid for type V, or
// nil if none exists. The pointer aliases store-owned memory.
func Get[V any](s *Store, uid UID) (*V, bool) {
	shard := shardFor[V](s)
	boxed, ok := shard[uid]
	if !ok {
		return nil, false
	}
	return unbox[V](boxed), true
}

// GetMut is identical to Get: Go has no distinct notion of a const
// reference, so both names return the same live pointer into
// store-owned storage. The separate name exists to mirror call sites
// that want to be explicit about intending to mutate.
func GetMut[V any](s *Store, uid UID) (*V, bool) {
	return Get[V](s, uid)
}

// Remove deletes and returns the value stored under uid for type V.
func Remove[V any](s *Store, uid UID) (V, bool) {
	shard := shardFor[V](s)
	boxed, ok := shard[uid]
	if !ok {
		var zero V
		return zero, false
	}
	delete(shard, uid)
	return *unbox[V](boxed), true
}

func unbox[V any](boxed any) *V {
	ptr, ok := boxed.(*V)
	if !ok {
		panic(errors.WithStack(errTypeMismatch))
	}
	return ptr
}

// newUID rejection-samples a 64-bit identifier unused within shard.
func newUID(shard map[UID]any) UID {
	for {
		id := UID(randUint64())
		if _, taken := shard[id]; !taken {
			return id
		}
	}
}

func randUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(errors.Wrap(err, "entitystore: reading random UID"))
	}
	return binary.BigEndian.Uint64(buf[:])
}
