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
	"github.com/Fantom-foundation/shardmap/go/backend/shard"
	"github.com/Fantom-foundation/shardmap/go/common"
)

// Account pairs a shard with the identity allowed to modify it. Checking the
// authority is up to the host; the shard itself does not know its owner.
type Account[K comparable, V any] struct {
	Authority common.Address
	Shard     *shard.MappingShard[K, V]
}

func NewAccount[K comparable, V any](authority common.Address, shardID uint8, maxItems uint16) *Account[K, V] {
	return &Account[K, V]{
		Authority: authority,
		Shard:     shard.NewMappingShard[K, V](shardID, maxItems),
	}
}

// IsAuthority checks whether the given identity owns the account.
func (a *Account[K, V]) IsAuthority(address common.Address) bool {
	return a.Authority == address
}
