// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/shardmap/go/backend/shard/host"
	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// TableSpace divides the key space of a database shared with other
// components by prefixing keys.
type TableSpace byte

const (
	// ShardRecordKey is the table space of shard records.
	ShardRecordKey TableSpace = 'S'
)

// DbKey is a 32 byte address prefixed by the table space.
type DbKey [33]byte

func (t TableSpace) ToDBKey(address common.Address) DbKey {
	var key DbKey
	key[0] = byte(t)
	copy(key[1:], address[:])
	return key
}

// RecordStore is a LevelDB based host.RecordStore implementation.
type RecordStore struct {
	db    *leveldb.DB
	table TableSpace
	sync  bool
}

// OpenRecordStore opens or creates a LevelDB database in the given directory.
// If sync is set, every write is flushed to disk before returning.
func OpenRecordStore(path string, sync bool) (*RecordStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB in %s: %w", path, err)
	}
	return NewRecordStore(db, ShardRecordKey, sync), nil
}

// NewRecordStore creates a record store in the table space of an open
// database. Closing the store closes the database.
func NewRecordStore(db *leveldb.DB, table TableSpace, sync bool) *RecordStore {
	return &RecordStore{db: db, table: table, sync: sync}
}

func (s *RecordStore) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: s.sync}
}

func (s *RecordStore) get(address common.Address) ([]byte, error) {
	key := s.table.ToDBKey(address)
	data, err := s.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	return data, err
}

func (s *RecordStore) put(address common.Address, data []byte) error {
	key := s.table.ToDBKey(address)
	return s.db.Put(key[:], data, s.writeOptions())
}

func (s *RecordStore) Allocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	if exists, err := s.Has(address); err != nil || exists {
		if err == nil {
			err = fmt.Errorf("%w: %v", host.ErrRecordExists, address)
		}
		return err
	}
	return s.put(address, make([]byte, size))
}

func (s *RecordStore) Load(address common.Address) ([]byte, error) {
	return s.get(address)
}

func (s *RecordStore) Store(address common.Address, data []byte) error {
	current, err := s.get(address)
	if err != nil {
		return err
	}
	if len(data) != len(current) {
		return fmt.Errorf("%w: got %d bytes, record has %d", host.ErrRecordSizeMismatch, len(data), len(current))
	}
	return s.put(address, data)
}

func (s *RecordStore) Reallocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	current, err := s.get(address)
	if err != nil {
		return err
	}
	resized := make([]byte, size)
	copy(resized, current)
	return s.put(address, resized)
}

func (s *RecordStore) Size(address common.Address) (int, error) {
	data, err := s.get(address)
	return len(data), err
}

func (s *RecordStore) Delete(address common.Address) error {
	if exists, err := s.Has(address); err != nil || !exists {
		if err == nil {
			err = fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
		}
		return err
	}
	key := s.table.ToDBKey(address)
	return s.db.Delete(key[:], s.writeOptions())
}

func (s *RecordStore) Has(address common.Address) (bool, error) {
	key := s.table.ToDBKey(address)
	return s.db.Has(key[:], nil)
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}
