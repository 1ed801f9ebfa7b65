// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "fmt"

// Address is a 32-byte identity used both for namespaces and authorities as
// well as for the derived location of shard records.
type Address [32]byte

// Hash is the result of a Keccak256 hash computation.
type Hash [32]byte

func (a Address) String() string {
	return fmt.Sprintf("%x", a[:])
}

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

// Serializer allows to convert the type to a slice of bytes and back.
// All values of a type share the same serialized size.
type Serializer[T any] interface {
	// ToBytes serializes the type to bytes.
	ToBytes(T) []byte
	// CopyBytes serializes the type into the provided slice, which must
	// have at least Size() bytes.
	CopyBytes(T, []byte)
	// FromBytes deserializes the type from bytes.
	FromBytes([]byte) T
	// Size provides the size of the type when serialized (bytes).
	Size() int
}
