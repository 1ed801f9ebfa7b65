// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package shard

import (
	"github.com/Fantom-foundation/shardmap/go/common"
)

const (
	// ErrShardFull is returned when admitting a new key would exceed the
	// capacity ceiling of a shard.
	ErrShardFull = common.ConstError("shard is full")
	// ErrKeyNotFound is returned when removing a key not present in a shard.
	ErrKeyNotFound = common.ConstError("key not found")
	// ErrInvalidShard is returned by hosts when a shard index or its derived
	// address does not match the addressed record.
	ErrInvalidShard = common.ConstError("invalid shard index or address mismatch")
	// ErrInvalidCapacity is returned when resizing below the current item count.
	ErrInvalidCapacity = common.ConstError("invalid capacity: new capacity cannot be smaller than current item count")
	// ErrCorruptShard is returned when restoring a shard from data violating
	// its invariants.
	ErrCorruptShard = common.ConstError("corrupt shard data")
)

// ShardedMap is a bounded key/value map living in a single shard. Keys are
// unique, the number of entries never exceeds the shard's capacity.
//
// Implementations are not safe for concurrent use; hosts must ensure a single
// writer per instance.
type ShardedMap[K comparable, V any] interface {
	// Insert associates the value with the key. Existing keys are
	// overwritten without consuming capacity. Admitting a new key fails with
	// ErrShardFull if the shard is at capacity.
	Insert(key K, value V) error

	// Get returns a copy of the value associated with the key.
	Get(key K) (V, bool)

	// Remove deletes the key from the map, or fails with ErrKeyNotFound.
	Remove(key K) error

	// Len returns the number of entries.
	Len() int

	// MaxCapacity returns the maximum number of entries.
	MaxCapacity() int

	// InsertBatch inserts the items in order and reports one result per item.
	// Once an item fails for lack of capacity, the remaining items are not
	// attempted and reported as ErrShardFull.
	InsertBatch(items []common.Entry[K, V]) []error

	// GetBatch looks up all the keys, aligned with the input.
	GetBatch(keys []K) []Option[V]

	// RemoveBatch removes all the keys and reports one result per key.
	RemoveBatch(keys []K) []error
}

// Option is a value which may be absent.
type Option[V any] struct {
	Val    V
	Exists bool
}

// Some creates a present Option.
func Some[V any](val V) Option[V] {
	return Option[V]{Val: val, Exists: true}
}

// None creates an absent Option.
func None[V any]() Option[V] {
	return Option[V]{}
}

// Cloner is implemented by values owning referenced data (e.g. slices) which
// have to be deep-copied to keep the stored value isolated from callers.
type Cloner[V any] interface {
	Clone() V
}

func cloneValue[V any](value V) V {
	if cloner, ok := any(value).(Cloner[V]); ok {
		return cloner.Clone()
	}
	return value
}
