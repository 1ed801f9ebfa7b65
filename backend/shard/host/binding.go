// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package host binds shards to the fixed-size records of a RecordStore.
//
// A Binding derives the record address of every shard of a namespace, sizes
// records for the shard capacity, and moves shards between their in-memory
// form and their records. Shards themselves never persist or size anything;
// all of it happens here.
package host

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/address"
	"github.com/Fantom-foundation/shardmap/go/backend/shard/record"
	"github.com/Fantom-foundation/shardmap/go/common"
	"go.uber.org/zap"
)

const ErrUnauthorized = common.ConstError("signer is not the authority of the shard")

// Config describes the shards of a namespace.
type Config struct {
	// Namespace all shard addresses are derived from.
	Namespace common.Address
	// KeySize is the encoded size of keys in bytes.
	KeySize int
	// ValueSize is the (estimated) encoded size of values in bytes.
	ValueSize int
	// Logger receives structured logs of record changes. Optional.
	Logger *zap.Logger
}

// Binding manages the records of the shards of a single namespace.
//
// Like the shards it manages, a Binding is not safe for concurrent use.
type Binding[K comparable, V any] struct {
	config  Config
	codec   record.Codec[K, V]
	records RecordStore
	log     *zap.Logger
}

func NewBinding[K comparable, V any](config Config, codec record.Codec[K, V], records RecordStore) (*Binding[K, V], error) {
	if config.KeySize <= 0 {
		return nil, fmt.Errorf("invalid key size %d", config.KeySize)
	}
	if config.ValueSize < 0 {
		return nil, fmt.Errorf("invalid value size %d", config.ValueSize)
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Binding[K, V]{
		config:  config,
		codec:   codec,
		records: records,
		log:     log.With(zap.Stringer("namespace", config.Namespace)),
	}, nil
}

// Address returns the record address of the shard with the given index.
func (b *Binding[K, V]) Address(index uint8) (common.Address, error) {
	addr, _, err := address.DeriveShardAddress(b.config.Namespace, index)
	return addr, err
}

// RecordSize returns the record size allocated for shards of the given capacity.
func (b *Binding[K, V]) RecordSize(maxItems uint16) int {
	return record.EstimateOwnedAccountSize(b.config.KeySize, b.config.ValueSize, int(maxItems))
}

// Create allocates the record of a new, empty shard owned by the authority.
func (b *Binding[K, V]) Create(authority common.Address, index uint8, maxItems uint16) (*record.Account[K, V], error) {
	addr, err := b.Address(index)
	if err != nil {
		return nil, err
	}
	account := record.NewAccount[K, V](authority, index, maxItems)
	size := b.RecordSize(maxItems)
	region := make([]byte, size)
	if err := b.codec.EncodeAccountInto(region, account); err != nil {
		return nil, err
	}
	if err := b.records.Allocate(addr, size); err != nil {
		return nil, fmt.Errorf("failed to allocate record of shard %d: %w", index, err)
	}
	if err := b.records.Store(addr, region); err != nil {
		if deleteErr := b.records.Delete(addr); deleteErr != nil {
			err = errors.Join(err, deleteErr)
		}
		return nil, fmt.Errorf("failed to initialize record of shard %d: %w", index, err)
	}
	b.log.Info("created shard record",
		zap.Uint8("index", index),
		zap.Stringer("address", addr),
		zap.Uint16("maxItems", maxItems),
		zap.Int("size", size),
	)
	return account, nil
}

// Load reads the shard with the given index from its record.
func (b *Binding[K, V]) Load(index uint8) (*record.Account[K, V], error) {
	addr, err := b.Address(index)
	if err != nil {
		return nil, err
	}
	data, err := b.records.Load(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to load record of shard %d: %w", index, err)
	}
	account, err := b.codec.DecodeAccount(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record of shard %d: %w", index, err)
	}
	if account.Shard.ID() != index {
		return nil, fmt.Errorf("%w: record at %v holds shard %d, wanted %d", shard.ErrInvalidShard, addr, account.Shard.ID(), index)
	}
	return account, nil
}

// Save writes the account back to the record of the shard with the given
// index. The signer must be the authority recorded for the shard.
func (b *Binding[K, V]) Save(index uint8, signer common.Address, account *record.Account[K, V]) error {
	if account.Shard.ID() != index {
		return fmt.Errorf("%w: shard %d saved as shard %d", shard.ErrInvalidShard, account.Shard.ID(), index)
	}
	if _, err := b.authorize(index, signer); err != nil {
		return err
	}
	if !account.IsAuthority(signer) {
		return fmt.Errorf("%w: authority of shard %d can not be changed", ErrUnauthorized, index)
	}
	addr, err := b.Address(index)
	if err != nil {
		return err
	}
	size, err := b.records.Size(addr)
	if err != nil {
		return err
	}
	region := make([]byte, size)
	if err := b.codec.EncodeAccountInto(region, account); err != nil {
		return fmt.Errorf("failed to encode shard %d: %w", index, err)
	}
	if err := b.records.Store(addr, region); err != nil {
		return fmt.Errorf("failed to store record of shard %d: %w", index, err)
	}
	b.log.Debug("saved shard record",
		zap.Uint8("index", index),
		zap.Int("items", account.Shard.Len()),
	)
	return nil
}

// Update loads the shard, applies the given operation and saves the result.
// If the operation fails, nothing is saved.
func (b *Binding[K, V]) Update(index uint8, signer common.Address, op func(*shard.MappingShard[K, V]) error) error {
	account, err := b.authorize(index, signer)
	if err != nil {
		return err
	}
	if err := op(account.Shard); err != nil {
		return err
	}
	return b.Save(index, signer, account)
}

// Resize changes the capacity of the shard and resizes its record to match.
func (b *Binding[K, V]) Resize(index uint8, signer common.Address, maxItems uint16) (*record.Account[K, V], error) {
	account, err := b.authorize(index, signer)
	if err != nil {
		return nil, err
	}
	before := account.Shard.MaxCapacity()
	if err := account.Shard.ResizeCapacity(maxItems); err != nil {
		return nil, err
	}
	size := b.RecordSize(maxItems)
	region := make([]byte, size)
	if err := b.codec.EncodeAccountInto(region, account); err != nil {
		return nil, fmt.Errorf("failed to encode shard %d: %w", index, err)
	}
	addr, err := b.Address(index)
	if err != nil {
		return nil, err
	}
	if err := b.records.Reallocate(addr, size); err != nil {
		return nil, fmt.Errorf("failed to reallocate record of shard %d: %w", index, err)
	}
	if err := b.records.Store(addr, region); err != nil {
		return nil, fmt.Errorf("failed to store record of shard %d: %w", index, err)
	}
	b.log.Info("resized shard record",
		zap.Uint8("index", index),
		zap.Int("from", before),
		zap.Uint16("to", maxItems),
		zap.Int("size", size),
	)
	return account, nil
}

// Delete removes the record of the shard.
func (b *Binding[K, V]) Delete(index uint8, signer common.Address) error {
	if _, err := b.authorize(index, signer); err != nil {
		return err
	}
	addr, err := b.Address(index)
	if err != nil {
		return err
	}
	if err := b.records.Delete(addr); err != nil {
		return fmt.Errorf("failed to delete record of shard %d: %w", index, err)
	}
	b.log.Info("deleted shard record", zap.Uint8("index", index), zap.Stringer("address", addr))
	return nil
}

func (b *Binding[K, V]) authorize(index uint8, signer common.Address) (*record.Account[K, V], error) {
	account, err := b.Load(index)
	if err != nil {
		return nil, err
	}
	if !account.IsAuthority(signer) {
		b.log.Warn("rejected unauthorized access",
			zap.Uint8("index", index),
			zap.Stringer("signer", signer),
		)
		return nil, fmt.Errorf("%w: %v for shard %d", ErrUnauthorized, signer, index)
	}
	return account, nil
}
