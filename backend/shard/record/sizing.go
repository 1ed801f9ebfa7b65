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

const (
	// DiscriminatorSize is the size of the type tag leading every record.
	DiscriminatorSize = 8
	// AuthoritySize is the size of the owner identity of Account records.
	AuthoritySize = 32

	lengthPrefixSize = 4
	entrySlack       = 4
	headerSlack      = 32
)

// EstimateAccountSize provides a conservative estimate of the record size
// required for a shard of maxItems entries, where keys take keySize bytes and
// values about valueSize bytes when encoded. It covers the discriminator, the
// entry count prefix and a length prefix per entry for variable width types.
func EstimateAccountSize(keySize, valueSize, maxItems int) int {
	return DiscriminatorSize + lengthPrefixSize + maxItems*(keySize+valueSize+entrySlack) + headerSlack
}

// EstimateOwnedAccountSize is EstimateAccountSize for shards wrapped into an
// Account, which additionally stores the authority.
func EstimateOwnedAccountSize(keySize, valueSize, maxItems int) int {
	return EstimateAccountSize(keySize, valueSize, maxItems) + AuthoritySize
}
