// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/shardmap/go/backend/shard/host"
	"github.com/Fantom-foundation/shardmap/go/common"
)

// RecordStore is an in-memory host.RecordStore implementation.
type RecordStore struct {
	records map[common.Address][]byte
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: map[common.Address][]byte{},
	}
}

func (s *RecordStore) Allocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	if _, exists := s.records[address]; exists {
		return fmt.Errorf("%w: %v", host.ErrRecordExists, address)
	}
	s.records[address] = make([]byte, size)
	return nil
}

func (s *RecordStore) Load(address common.Address) ([]byte, error) {
	data, exists := s.records[address]
	if !exists {
		return nil, fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	return append([]byte(nil), data...), nil
}

func (s *RecordStore) Store(address common.Address, data []byte) error {
	current, exists := s.records[address]
	if !exists {
		return fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	if len(data) != len(current) {
		return fmt.Errorf("%w: got %d bytes, record has %d", host.ErrRecordSizeMismatch, len(data), len(current))
	}
	copy(current, data)
	return nil
}

func (s *RecordStore) Reallocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	current, exists := s.records[address]
	if !exists {
		return fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	resized := make([]byte, size)
	copy(resized, current)
	s.records[address] = resized
	return nil
}

func (s *RecordStore) Size(address common.Address) (int, error) {
	data, exists := s.records[address]
	if !exists {
		return 0, fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	return len(data), nil
}

func (s *RecordStore) Delete(address common.Address) error {
	if _, exists := s.records[address]; !exists {
		return fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	delete(s.records, address)
	return nil
}

func (s *RecordStore) Has(address common.Address) (bool, error) {
	_, exists := s.records[address]
	return exists, nil
}

// Close the store
func (s *RecordStore) Close() error {
	return nil // no-op for in-memory store
}

// GetMemoryFootprint provides the size of the store in memory in bytes
func (s *RecordStore) GetMemoryFootprint() *common.MemoryFootprint {
	size := unsafe.Sizeof(*s)
	for _, data := range s.records {
		size += unsafe.Sizeof(common.Address{}) + uintptr(cap(data))
	}
	return common.NewMemoryFootprint(size)
}
