// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package address derives the deterministic storage addresses of shard
// records from a namespace and a shard index.
//
// Derived addresses are chosen such that they are not the x coordinate of a
// secp256k1 point, so no private key can exist for them. The bump seed
// discriminates between candidates and has to be stored or re-derived by the
// host to recreate an address.
package address

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/shardmap/go/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SeedPrefix is the leading seed of all shard addresses.
const SeedPrefix = "mapping_shard"

const (
	// MaxSeeds is the maximum number of seeds, including the bump.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed in bytes.
	MaxSeedLength = 32

	marker = "ShardAddress"
)

const (
	ErrOnCurve               = common.ConstError("derived address is a curve point")
	ErrMaxSeedLengthExceeded = common.ConstError("seed limits exceeded")
	ErrNoViableBump          = common.ConstError("unable to find a viable bump seed")
)

// DeriveShardAddress returns the address of the shard with the given index in
// the given namespace, together with the bump seed used to derive it.
func DeriveShardAddress(namespace common.Address, shardIndex uint8) (common.Address, uint8, error) {
	return FindAddress(namespace, [][]byte{[]byte(SeedPrefix), {shardIndex}})
}

// FindAddress searches the highest bump seed in [0,255] producing an address
// off the curve for the given seeds.
func FindAddress(namespace common.Address, seeds [][]byte) (common.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		address, err := CreateAddress(namespace, seeds, uint8(bump))
		if err == nil {
			return address, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return common.Address{}, 0, err
		}
	}
	return common.Address{}, 0, ErrNoViableBump
}

// CreateAddress computes the address for the given seeds and bump. It fails
// with ErrOnCurve if the resulting address could have a private key.
func CreateAddress(namespace common.Address, seeds [][]byte, bump uint8) (common.Address, error) {
	if len(seeds)+1 > MaxSeeds {
		return common.Address{}, fmt.Errorf("%w: %d seeds", ErrMaxSeedLengthExceeded, len(seeds)+1)
	}
	data := make([][]byte, 0, len(seeds)+3)
	data = append(data, namespace[:])
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return common.Address{}, fmt.Errorf("%w: seed of %d bytes", ErrMaxSeedLengthExceeded, len(seed))
		}
		data = append(data, seed)
	}
	data = append(data, []byte{bump}, []byte(marker))

	candidate := common.Address(common.Keccak256(data...))
	if isOnCurve(candidate) {
		return common.Address{}, ErrOnCurve
	}
	return candidate, nil
}

func isOnCurve(address common.Address) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, address[:]...)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}
