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

import "encoding/binary"

// Integer serializers use little-endian byte order so fixed-width records
// keep the same layout as Borsh encoded account data.

// AddressSerializer is a Serializer of the Address type
type AddressSerializer struct{}

func (a AddressSerializer) ToBytes(address Address) []byte {
	return address[:]
}
func (a AddressSerializer) CopyBytes(address Address, out []byte) {
	copy(out, address[:])
}
func (a AddressSerializer) FromBytes(bytes []byte) Address {
	var address Address
	copy(address[:], bytes)
	return address
}
func (a AddressSerializer) Size() int {
	return 32
}

// Uint64Serializer is a Serializer of uint64 values
type Uint64Serializer struct{}

func (a Uint64Serializer) ToBytes(value uint64) []byte {
	res := make([]byte, 8)
	binary.LittleEndian.PutUint64(res, value)
	return res
}
func (a Uint64Serializer) CopyBytes(value uint64, out []byte) {
	binary.LittleEndian.PutUint64(out, value)
}
func (a Uint64Serializer) FromBytes(bytes []byte) uint64 {
	return binary.LittleEndian.Uint64(bytes)
}
func (a Uint64Serializer) Size() int {
	return 8
}

// Uint32Serializer is a Serializer of uint32 values
type Uint32Serializer struct{}

func (a Uint32Serializer) ToBytes(value uint32) []byte {
	res := make([]byte, 4)
	binary.LittleEndian.PutUint32(res, value)
	return res
}
func (a Uint32Serializer) CopyBytes(value uint32, out []byte) {
	binary.LittleEndian.PutUint32(out, value)
}
func (a Uint32Serializer) FromBytes(bytes []byte) uint32 {
	return binary.LittleEndian.Uint32(bytes)
}
func (a Uint32Serializer) Size() int {
	return 4
}
