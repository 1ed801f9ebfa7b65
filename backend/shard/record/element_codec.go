// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package record

import (
	"fmt"

	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/fxamacker/cbor/v2"
)

var lengthPrefix = common.Uint32Serializer{}

func appendLength(dst []byte, length int) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, lengthPrefixSize)...)
	lengthPrefix.CopyBytes(uint32(length), dst[start:])
	return dst
}

// ElementCodec converts keys or values of shards to bytes and back.
type ElementCodec[T any] interface {
	// Append appends the encoding of the value to dst.
	Append(dst []byte, value T) ([]byte, error)
	// Decode decodes a value from the beginning of src and returns the
	// number of consumed bytes.
	Decode(src []byte) (T, int, error)
}

// FixedCodec encodes elements of a fixed width using a common.Serializer.
type FixedCodec[T any] struct {
	serializer common.Serializer[T]
}

func Fixed[T any](serializer common.Serializer[T]) FixedCodec[T] {
	return FixedCodec[T]{serializer: serializer}
}

func (c FixedCodec[T]) Append(dst []byte, value T) ([]byte, error) {
	size := c.serializer.Size()
	start := len(dst)
	dst = append(dst, make([]byte, size)...)
	c.serializer.CopyBytes(value, dst[start:start+size])
	return dst, nil
}

func (c FixedCodec[T]) Decode(src []byte) (res T, n int, err error) {
	size := c.serializer.Size()
	if len(src) < size {
		return res, 0, fmt.Errorf("%w: need %d bytes for element, have %d", ErrTruncated, size, len(src))
	}
	return c.serializer.FromBytes(src[:size]), size, nil
}

// CBORCodec encodes elements of variable width using deterministic CBOR,
// prefixed by their length as a little-endian uint32. Values the decoder
// would reject, like strings holding invalid UTF-8, are rejected on encoding
// with ErrInvalidElement so that no unreadable record is ever written.
type CBORCodec[T any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORCodec[T any]() (CBORCodec[T], error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBORCodec[T]{}, err
	}
	dec, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return CBORCodec[T]{}, err
	}
	return CBORCodec[T]{enc: enc, dec: dec}, nil
}

func (c CBORCodec[T]) Append(dst []byte, value T) ([]byte, error) {
	data, err := c.enc.Marshal(value)
	if err != nil {
		return dst, fmt.Errorf("%w: %w", ErrInvalidElement, err)
	}
	var check T
	if err := c.dec.Unmarshal(data, &check); err != nil {
		return dst, fmt.Errorf("%w: %w", ErrInvalidElement, err)
	}
	dst = appendLength(dst, len(data))
	return append(dst, data...), nil
}

func (c CBORCodec[T]) Decode(src []byte) (res T, n int, err error) {
	if len(src) < lengthPrefixSize {
		return res, 0, fmt.Errorf("%w: missing element length", ErrTruncated)
	}
	size := lengthPrefix.FromBytes(src)
	end := uint64(lengthPrefixSize) + uint64(size)
	if uint64(len(src)) < end {
		return res, 0, fmt.Errorf("%w: need %d bytes for element, have %d", ErrTruncated, end, len(src))
	}
	if err := c.dec.Unmarshal(src[lengthPrefixSize:end], &res); err != nil {
		return res, 0, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return res, int(end), nil
}
