// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package record defines the flat binary layout of shard records.
//
// All integers are little-endian. A shard record is laid out as
//
//	[8] discriminator
//	[1] shard id
//	[4] number of entries
//	... entries, each the key encoding followed by the value encoding
//	[2] cached item count
//	[2] maximum number of items
//
// Account records insert the 32 byte authority after the discriminator.
// Records may be followed by zero padding up to their allocated size.
package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/common"
)

const (
	ErrBadDiscriminator = common.ConstError("record discriminator does not match")
	ErrTruncated        = common.ConstError("record is truncated")
	ErrCorruptRecord    = common.ConstError("record is corrupt")
	ErrRecordTooSmall   = common.ConstError("record too small for encoded shard")
	ErrInvalidElement   = common.ConstError("element has no valid record encoding")
)

var (
	shardDiscriminator   = discriminator("MappingShard")
	accountDiscriminator = discriminator("AccountShard")
)

func discriminator(name string) [DiscriminatorSize]byte {
	var res [DiscriminatorSize]byte
	hash := sha256.Sum256([]byte("account:" + name))
	copy(res[:], hash[:])
	return res
}

// Codec encodes and decodes shards with keys K and values V.
type Codec[K comparable, V any] struct {
	keys   ElementCodec[K]
	values ElementCodec[V]
}

func NewCodec[K comparable, V any](keys ElementCodec[K], values ElementCodec[V]) Codec[K, V] {
	return Codec[K, V]{keys: keys, values: values}
}

// EncodeShard produces the record of a bare shard.
func (c Codec[K, V]) EncodeShard(s *shard.MappingShard[K, V]) ([]byte, error) {
	buf := make([]byte, 0, DiscriminatorSize+s.Len()*16+headerSlack)
	buf = append(buf, shardDiscriminator[:]...)
	return c.appendShard(buf, s)
}

// DecodeShard restores a bare shard from its record.
func (c Codec[K, V]) DecodeShard(data []byte) (*shard.MappingShard[K, V], error) {
	body, err := checkDiscriminator(data, shardDiscriminator)
	if err != nil {
		return nil, err
	}
	return c.decodeShard(body)
}

// EncodeAccount produces the record of an account.
func (c Codec[K, V]) EncodeAccount(account *Account[K, V]) ([]byte, error) {
	buf := make([]byte, 0, DiscriminatorSize+AuthoritySize+account.Shard.Len()*16+headerSlack)
	buf = append(buf, accountDiscriminator[:]...)
	buf = append(buf, account.Authority[:]...)
	return c.appendShard(buf, account.Shard)
}

// DecodeAccount restores an account from its record.
func (c Codec[K, V]) DecodeAccount(data []byte) (*Account[K, V], error) {
	body, err := checkDiscriminator(data, accountDiscriminator)
	if err != nil {
		return nil, err
	}
	if len(body) < AuthoritySize {
		return nil, fmt.Errorf("%w: missing authority", ErrTruncated)
	}
	res := &Account[K, V]{
		Authority: common.AddressSerializer{}.FromBytes(body[:AuthoritySize]),
	}
	if res.Shard, err = c.decodeShard(body[AuthoritySize:]); err != nil {
		return nil, err
	}
	return res, nil
}

// EncodeAccountInto writes the account record into the given region and
// zeroes the remainder. It fails with ErrRecordTooSmall if the encoding
// exceeds the region, leaving the region untouched.
func (c Codec[K, V]) EncodeAccountInto(region []byte, account *Account[K, V]) error {
	data, err := c.EncodeAccount(account)
	if err != nil {
		return err
	}
	if len(data) > len(region) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrRecordTooSmall, len(data), len(region))
	}
	n := copy(region, data)
	clear(region[n:])
	return nil
}

// EncodedAccountSize returns the exact size of the account's record.
func (c Codec[K, V]) EncodedAccountSize(account *Account[K, V]) (int, error) {
	data, err := c.EncodeAccount(account)
	return len(data), err
}

func checkDiscriminator(data []byte, want [DiscriminatorSize]byte) ([]byte, error) {
	if len(data) < DiscriminatorSize {
		return nil, fmt.Errorf("%w: missing discriminator", ErrTruncated)
	}
	if !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		return nil, fmt.Errorf("%w: got %x, wanted %x", ErrBadDiscriminator, data[:DiscriminatorSize], want)
	}
	return data[DiscriminatorSize:], nil
}

func (c Codec[K, V]) appendShard(buf []byte, s *shard.MappingShard[K, V]) ([]byte, error) {
	entries := s.Entries()
	buf = append(buf, s.ID())
	buf = appendLength(buf, len(entries))
	var err error
	for _, entry := range entries {
		if buf, err = c.keys.Append(buf, entry.Key); err != nil {
			return nil, fmt.Errorf("failed to encode key %v: %w", entry.Key, err)
		}
		if buf, err = c.values.Append(buf, entry.Val); err != nil {
			return nil, fmt.Errorf("failed to encode value of key %v: %w", entry.Key, err)
		}
	}
	buf = binary.LittleEndian.AppendUint16(buf, s.ItemCount())
	buf = binary.LittleEndian.AppendUint16(buf, uint16(s.MaxCapacity()))
	return buf, nil
}

func (c Codec[K, V]) decodeShard(src []byte) (*shard.MappingShard[K, V], error) {
	if len(src) < 1+lengthPrefixSize {
		return nil, fmt.Errorf("%w: missing shard header", ErrTruncated)
	}
	id := src[0]
	count := lengthPrefix.FromBytes(src[1:])
	if count > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries exceed the shard limit", ErrCorruptRecord, count)
	}
	pos := 1 + lengthPrefixSize

	entries := make([]common.Entry[K, V], 0, count)
	for i := uint32(0); i < count; i++ {
		key, n, err := c.keys.Decode(src[pos:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode key %d: %w", i, err)
		}
		pos += n
		value, n, err := c.values.Decode(src[pos:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode value %d: %w", i, err)
		}
		pos += n
		entries = append(entries, common.Entry[K, V]{Key: key, Val: value})
	}

	if len(src)-pos < 4 {
		return nil, fmt.Errorf("%w: missing shard counters", ErrTruncated)
	}
	itemCount := binary.LittleEndian.Uint16(src[pos:])
	maxItems := binary.LittleEndian.Uint16(src[pos+2:])

	res, err := shard.FromEntries(id, maxItems, itemCount, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return res, nil
}
