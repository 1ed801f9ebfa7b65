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
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func newStringCodec(t *testing.T) Codec[uint64, string] {
	t.Helper()
	values, err := NewCBORCodec[string]()
	require.NoError(t, err)
	return NewCodec[uint64, string](Fixed[uint64](common.Uint64Serializer{}), values)
}

func newFixedCodec() Codec[uint64, uint64] {
	return NewCodec[uint64, uint64](Fixed[uint64](common.Uint64Serializer{}), Fixed[uint64](common.Uint64Serializer{}))
}

func assertGolden(t *testing.T, name string, data []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(hex.EncodeToString(data)+"\n"))
}

func TestCodec_AccountLayout(t *testing.T) {
	codec := newStringCodec(t)
	account := NewAccount[uint64, string](common.Address{0xaa}, 3, 4)
	require.NoError(t, account.Shard.Insert(1, "Alice"))
	require.NoError(t, account.Shard.Insert(2, "Bob"))

	data, err := codec.EncodeAccount(account)
	require.NoError(t, err)
	assertGolden(t, "account_cbor_values", data)

	size, err := codec.EncodedAccountSize(account)
	require.NoError(t, err)
	require.Equal(t, len(data), size)
}

func TestCodec_ShardLayout(t *testing.T) {
	codec := newFixedCodec()
	s := shard.NewMappingShard[uint64, uint64](1, 5)
	require.NoError(t, s.Insert(10, 100))
	require.NoError(t, s.Insert(20, 200))
	require.NoError(t, s.Insert(30, 300))

	data, err := codec.EncodeShard(s)
	require.NoError(t, err)
	assertGolden(t, "shard_fixed_values", data)
}

func TestCodec_AccountRoundTripPreservesOrderAndCapacity(t *testing.T) {
	codec := newStringCodec(t)
	account := NewAccount[uint64, string](common.Address{1, 2, 3}, 9, 10)
	for _, key := range []uint64{5, 3, 8, 1} {
		require.NoError(t, account.Shard.Insert(key, "value"))
	}
	require.NoError(t, account.Shard.Remove(3))

	data, err := codec.EncodeAccount(account)
	require.NoError(t, err)
	restored, err := codec.DecodeAccount(data)
	require.NoError(t, err)

	require.Equal(t, account.Authority, restored.Authority)
	require.Equal(t, uint8(9), restored.Shard.ID())
	require.Equal(t, 10, restored.Shard.MaxCapacity())
	require.Equal(t, account.Shard.Entries(), restored.Shard.Entries())
}

func TestCodec_DecodeIgnoresZeroPadding(t *testing.T) {
	codec := newFixedCodec()
	account := NewAccount[uint64, uint64](common.Address{1}, 0, 3)
	require.NoError(t, account.Shard.Insert(1, 2))

	region := make([]byte, EstimateOwnedAccountSize(8, 8, 3))
	for i := range region {
		region[i] = 0xff
	}
	require.NoError(t, codec.EncodeAccountInto(region, account))

	size, err := codec.EncodedAccountSize(account)
	require.NoError(t, err)
	for _, b := range region[size:] {
		require.Equal(t, byte(0), b)
	}

	restored, err := codec.DecodeAccount(region)
	require.NoError(t, err)
	value, found := restored.Shard.Get(1)
	require.True(t, found)
	require.Equal(t, uint64(2), value)
}

func TestCodec_EncodeIntoTooSmallRegionFails(t *testing.T) {
	codec := newFixedCodec()
	account := NewAccount[uint64, uint64](common.Address{1}, 0, 3)
	require.NoError(t, account.Shard.Insert(1, 2))

	region := make([]byte, 20)
	err := codec.EncodeAccountInto(region, account)
	require.ErrorIs(t, err, ErrRecordTooSmall)
	require.Equal(t, make([]byte, 20), region)
}

func TestCodec_RejectsWrongDiscriminator(t *testing.T) {
	codec := newFixedCodec()
	data, err := codec.EncodeShard(shard.NewMappingShard[uint64, uint64](0, 1))
	require.NoError(t, err)

	_, err = codec.DecodeAccount(data)
	require.ErrorIs(t, err, ErrBadDiscriminator)
	_, err = codec.DecodeShard(make([]byte, 32))
	require.ErrorIs(t, err, ErrBadDiscriminator)
}

func TestCodec_RejectsTruncatedRecords(t *testing.T) {
	codec := newFixedCodec()
	account := NewAccount[uint64, uint64](common.Address{1}, 0, 3)
	require.NoError(t, account.Shard.Insert(1, 2))
	data, err := codec.EncodeAccount(account)
	require.NoError(t, err)

	for i := 0; i < len(data); i++ {
		_, err := codec.DecodeAccount(data[:i])
		require.ErrorIs(t, err, ErrTruncated, "prefix of length %d", i)
	}
}

func TestCodec_RejectsRecordsViolatingShardInvariants(t *testing.T) {
	codec := newFixedCodec()
	s := shard.NewMappingShard[uint64, uint64](0, 2)
	require.NoError(t, s.Insert(1, 1))
	require.NoError(t, s.Insert(2, 2))
	data, err := codec.EncodeShard(s)
	require.NoError(t, err)

	// lower max items below the number of entries
	corrupted := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(corrupted[len(corrupted)-2:], 1)
	_, err = codec.DecodeShard(corrupted)
	require.ErrorIs(t, err, ErrCorruptRecord)
	require.ErrorIs(t, err, shard.ErrCorruptShard)

	// duplicate the first key
	corrupted = append([]byte(nil), data...)
	copy(corrupted[DiscriminatorSize+5+16:], corrupted[DiscriminatorSize+5:DiscriminatorSize+5+8])
	_, err = codec.DecodeShard(corrupted)
	require.ErrorIs(t, err, shard.ErrCorruptShard)

	// entry count beyond what a shard can hold
	corrupted = append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(corrupted[DiscriminatorSize+1:], 1<<20)
	_, err = codec.DecodeShard(corrupted)
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestCBORCodec_RejectsMalformedValues(t *testing.T) {
	values, err := NewCBORCodec[string]()
	require.NoError(t, err)

	// a CBOR unsigned integer where a text string is expected
	_, _, err = values.Decode([]byte{1, 0, 0, 0, 0x01})
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, _, err = values.Decode([]byte{5, 0, 0, 0, 0x65})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCBORCodec_RejectsValuesItCanNotDecode(t *testing.T) {
	values, err := NewCBORCodec[string]()
	require.NoError(t, err)

	prefix := []byte{0xaa}
	data, err := values.Append(prefix, "\xff\xfe")
	require.ErrorIs(t, err, ErrInvalidElement)
	require.Equal(t, prefix, data)

	nested, err := NewCBORCodec[payload]()
	require.NoError(t, err)
	_, err = nested.Append(nil, payload{Owner: "alice", Tags: []string{"\xff"}})
	require.ErrorIs(t, err, ErrInvalidElement)
}

func TestCodec_ShardsWithUndecodableValuesAreNotEncoded(t *testing.T) {
	codec := newStringCodec(t)
	account := NewAccount[uint64, string](common.Address{1}, 0, 4)
	require.NoError(t, account.Shard.Insert(1, "valid"))
	require.NoError(t, account.Shard.Insert(2, "\xff"))

	_, err := codec.EncodeAccount(account)
	require.ErrorIs(t, err, ErrInvalidElement)

	region := []byte{1, 2, 3}
	region = append(region, make([]byte, 200)...)
	before := append([]byte(nil), region...)
	require.ErrorIs(t, codec.EncodeAccountInto(region, account), ErrInvalidElement)
	require.Equal(t, before, region)

	require.NoError(t, account.Shard.Insert(2, "ok"))
	data, err := codec.EncodeAccount(account)
	require.NoError(t, err)
	decoded, err := codec.DecodeAccount(data)
	require.NoError(t, err)
	require.Equal(t, account.Shard.Entries(), decoded.Shard.Entries())
}

type payload struct {
	Owner  string
	Amount uint64
	Tags   []string
}

func TestCBORCodec_EncodesStructsDeterministically(t *testing.T) {
	values, err := NewCBORCodec[payload]()
	require.NoError(t, err)
	value := payload{Owner: "alice", Amount: 12, Tags: []string{"a", "b"}}

	first, err := values.Append(nil, value)
	require.NoError(t, err)
	second, err := values.Append(nil, value)
	require.NoError(t, err)
	require.Equal(t, first, second)

	decoded, n, err := values.Decode(first)
	require.NoError(t, err)
	require.Equal(t, len(first), n)
	require.Equal(t, value, decoded)
}

func TestFixedCodec_AppendsToExistingData(t *testing.T) {
	codec := Fixed[uint32](common.Uint32Serializer{})
	data, err := codec.Append([]byte{0xff}, 0x01020304)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0x04, 0x03, 0x02, 0x01}, data)

	_, _, err = codec.Decode(data[:3])
	require.True(t, errors.Is(err, ErrTruncated))
}
