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
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/shardmap/go/common"
	"golang.org/x/exp/slices"
)

// MappingShard is a ShardedMap keeping its entries in a flat slice bounded by
// a fixed capacity. Lookups are linear scans, which is the intended trade-off
// for shards of tens to low hundreds of entries stored in a single flat record.
//
// Entries are kept in insertion order; removals shift the trailing entries to
// preserve the relative order.
type MappingShard[K comparable, V any] struct {
	id        uint8
	entries   []common.Entry[K, V]
	itemCount uint16 // always len(entries), kept for the compact record layout
	maxItems  uint16
}

// NewMappingShard creates an empty shard with the given id and capacity.
func NewMappingShard[K comparable, V any](id uint8, maxItems uint16) *MappingShard[K, V] {
	return &MappingShard[K, V]{
		id:       id,
		entries:  make([]common.Entry[K, V], 0, maxItems),
		maxItems: maxItems,
	}
}

// FromEntries restores a shard from decoded record data. The entries are
// copied. Data violating the shard invariants is rejected with ErrCorruptShard.
func FromEntries[K comparable, V any](id uint8, maxItems uint16, itemCount uint16, entries []common.Entry[K, V]) (*MappingShard[K, V], error) {
	if int(itemCount) != len(entries) {
		return nil, fmt.Errorf("%w: item count %d does not match %d entries", ErrCorruptShard, itemCount, len(entries))
	}
	if len(entries) > int(maxItems) {
		return nil, fmt.Errorf("%w: %d entries exceed capacity of %d", ErrCorruptShard, len(entries), maxItems)
	}
	seen := make(map[K]struct{}, len(entries))
	for _, entry := range entries {
		if _, found := seen[entry.Key]; found {
			return nil, fmt.Errorf("%w: duplicate key %v", ErrCorruptShard, entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}
	res := NewMappingShard[K, V](id, maxItems)
	res.entries = append(res.entries, entries...)
	res.itemCount = itemCount
	return res, nil
}

// ID returns the id of the shard among its siblings.
func (m *MappingShard[K, V]) ID() uint8 {
	return m.id
}

func (m *MappingShard[K, V]) find(key K) int {
	return slices.IndexFunc(m.entries, func(e common.Entry[K, V]) bool {
		return e.Key == key
	})
}

func (m *MappingShard[K, V]) Insert(key K, value V) error {
	if pos := m.find(key); pos >= 0 {
		m.entries[pos].Val = cloneValue(value)
		return nil
	}
	if !m.CanAddItem() {
		return ErrShardFull
	}
	m.entries = append(m.entries, common.Entry[K, V]{Key: key, Val: cloneValue(value)})
	m.itemCount = uint16(len(m.entries))
	return nil
}

func (m *MappingShard[K, V]) Get(key K) (value V, exists bool) {
	if pos := m.find(key); pos >= 0 {
		return cloneValue(m.entries[pos].Val), true
	}
	return value, false
}

func (m *MappingShard[K, V]) Remove(key K) error {
	pos := m.find(key)
	if pos < 0 {
		return ErrKeyNotFound
	}
	last := len(m.entries) - 1
	copy(m.entries[pos:], m.entries[pos+1:])
	m.entries[last] = common.Entry[K, V]{}
	m.entries = m.entries[:last]
	m.itemCount = uint16(len(m.entries))
	return nil
}

func (m *MappingShard[K, V]) Len() int {
	return len(m.entries)
}

func (m *MappingShard[K, V]) MaxCapacity() int {
	return int(m.maxItems)
}

// ItemCount returns the cached entry count stored in the shard record.
func (m *MappingShard[K, V]) ItemCount() uint16 {
	return m.itemCount
}

func (m *MappingShard[K, V]) InsertBatch(items []common.Entry[K, V]) []error {
	results := make([]error, len(items))
	for i, item := range items {
		err := m.Insert(item.Key, item.Val)
		results[i] = err
		if err != nil && !m.CanAddItem() {
			// Later items are not attempted, even those which would only
			// overwrite existing keys.
			for j := i + 1; j < len(items); j++ {
				results[j] = ErrShardFull
			}
			break
		}
	}
	return results
}

func (m *MappingShard[K, V]) GetBatch(keys []K) []Option[V] {
	res := make([]Option[V], len(keys))
	for i, key := range keys {
		if value, exists := m.Get(key); exists {
			res[i] = Some(value)
		}
	}
	return res
}

func (m *MappingShard[K, V]) RemoveBatch(keys []K) []error {
	results := make([]error, len(keys))
	for i, key := range keys {
		results[i] = m.Remove(key)
	}
	return results
}

// TryInsertBatch inserts all items if the distinct keys not yet present fit
// into the remaining capacity. Otherwise it fails with ErrShardFull and the
// shard is left untouched. The returned count covers all applied items,
// including overwrites of existing keys.
func (m *MappingShard[K, V]) TryInsertBatch(items []common.Entry[K, V]) (int, error) {
	if !m.CanInsertBatch(items) {
		return 0, ErrShardFull
	}
	inserted := 0
	for _, item := range items {
		if m.Insert(item.Key, item.Val) == nil {
			inserted++
		}
	}
	return inserted, nil
}

// CanInsertBatch checks whether TryInsertBatch would succeed for the items.
func (m *MappingShard[K, V]) CanInsertBatch(items []common.Entry[K, V]) bool {
	newKeys := m.countNewKeys(len(items), func(i int) K { return items[i].Key })
	return newKeys <= m.RemainingCapacity()
}

// SpaceForNewItems returns how many of the given keys not yet present could
// be admitted right now.
func (m *MappingShard[K, V]) SpaceForNewItems(keys []K) int {
	newKeys := m.countNewKeys(len(keys), func(i int) K { return keys[i] })
	return min(newKeys, m.RemainingCapacity())
}

// countNewKeys counts the distinct keys not present in the shard. A key
// listed several times is only counted once, as it consumes a single slot.
func (m *MappingShard[K, V]) countNewKeys(n int, keyAt func(int) K) int {
	seen := make(map[K]struct{}, n)
	count := 0
	for i := 0; i < n; i++ {
		key := keyAt(i)
		if _, found := seen[key]; found {
			continue
		}
		seen[key] = struct{}{}
		if m.find(key) < 0 {
			count++
		}
	}
	return count
}

// CanAddItem returns true if there is room for at least one more key.
func (m *MappingShard[K, V]) CanAddItem() bool {
	return len(m.entries) < int(m.maxItems)
}

// RemainingCapacity returns the number of free slots.
func (m *MappingShard[K, V]) RemainingCapacity() int {
	return int(m.maxItems) - len(m.entries)
}

func (m *MappingShard[K, V]) IsFull() bool {
	return len(m.entries) >= int(m.maxItems)
}

func (m *MappingShard[K, V]) IsEmpty() bool {
	return len(m.entries) == 0
}

// ResizeCapacity changes the capacity ceiling. Shrinking below the number of
// present entries fails with ErrInvalidCapacity.
func (m *MappingShard[K, V]) ResizeCapacity(newMaxItems uint16) error {
	if int(newMaxItems) < len(m.entries) {
		return ErrInvalidCapacity
	}
	m.maxItems = newMaxItems
	if int(newMaxItems) > cap(m.entries) {
		m.entries = slices.Grow(m.entries, int(newMaxItems)-len(m.entries))
	}
	return nil
}

// ShrinkToFit releases unused buffer space.
func (m *MappingShard[K, V]) ShrinkToFit() {
	if cap(m.entries) > len(m.entries) {
		entries := make([]common.Entry[K, V], len(m.entries))
		copy(entries, m.entries)
		m.entries = entries
	}
}

// Reserve pre-allocates buffer space for additional entries, capped at the
// remaining capacity.
func (m *MappingShard[K, V]) Reserve(additional int) {
	toReserve := min(additional, m.RemainingCapacity())
	if toReserve > 0 {
		m.entries = slices.Grow(m.entries, toReserve)
	}
}

// Clear removes all entries, keeping the capacity ceiling.
func (m *MappingShard[K, V]) Clear() {
	clear(m.entries)
	m.entries = m.entries[:0]
	m.itemCount = 0
}

// UtilizationPercentage returns the occupied share of the capacity in [0,100].
func (m *MappingShard[K, V]) UtilizationPercentage() float32 {
	if m.maxItems == 0 {
		return 0
	}
	return float32(len(m.entries)) / float32(m.maxItems) * 100
}

// LoadFactor returns the occupied share of the capacity in [0,1].
func (m *MappingShard[K, V]) LoadFactor() float32 {
	if m.maxItems == 0 {
		return 0
	}
	return float32(len(m.entries)) / float32(m.maxItems)
}

func (m *MappingShard[K, V]) IsNearCapacity(thresholdPercentage float32) bool {
	return m.UtilizationPercentage() >= thresholdPercentage
}

// Entries returns a copy of all entries in insertion order.
func (m *MappingShard[K, V]) Entries() []common.Entry[K, V] {
	res := make([]common.Entry[K, V], len(m.entries))
	for i, entry := range m.entries {
		res[i] = common.Entry[K, V]{Key: entry.Key, Val: cloneValue(entry.Val)}
	}
	return res
}

// CapacityStats provides a snapshot of the current utilization.
func (m *MappingShard[K, V]) CapacityStats() CapacityStats {
	return CapacityStats{
		CurrentItems:          m.Len(),
		MaxCapacity:           m.MaxCapacity(),
		RemainingCapacity:     m.RemainingCapacity(),
		UtilizationPercentage: m.UtilizationPercentage(),
		LoadFactor:            m.LoadFactor(),
		ReservedCapacity:      cap(m.entries),
		IsFull:                m.IsFull(),
		IsEmpty:               m.IsEmpty(),
	}
}

// GetMemoryFootprint provides the size of the shard in memory in bytes.
func (m *MappingShard[K, V]) GetMemoryFootprint() *common.MemoryFootprint {
	var entry common.Entry[K, V]
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m))
	mf.AddChild("entries", common.NewMemoryFootprint(uintptr(cap(m.entries))*unsafe.Sizeof(entry)))
	mf.SetNote(fmt.Sprintf("%d/%d items", len(m.entries), m.maxItems))
	return mf
}
