// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

//go:generate mockgen -source record_store.go -destination record_store_mocks.go -package host

import (
	"io"

	"github.com/Fantom-foundation/shardmap/go/common"
)

const (
	ErrRecordNotFound     = common.ConstError("record not found")
	ErrRecordExists       = common.ConstError("record already exists")
	ErrRecordSizeMismatch = common.ConstError("data does not match the allocated record size")
)

// RecordStore holds the fixed-size records backing shards, addressed by
// their derived address. Records are allocated with a size up front and
// always read and written as a whole.
type RecordStore interface {
	// Allocate creates a zero-filled record of the given size. It fails with
	// ErrRecordExists if the address is already in use.
	Allocate(address common.Address, size int) error

	// Load returns a copy of the record's content.
	Load(address common.Address) ([]byte, error)

	// Store replaces the record's content. The data must have exactly the
	// allocated size of the record.
	Store(address common.Address, data []byte) error

	// Reallocate changes the size of a record. Content beyond the new size is
	// dropped, new space is zero-filled.
	Reallocate(address common.Address, size int) error

	// Size returns the allocated size of a record.
	Size(address common.Address) (int, error)

	// Delete removes the record. Deleting a missing record fails with
	// ErrRecordNotFound.
	Delete(address common.Address) error

	// Has checks whether a record is allocated at the address.
	Has(address common.Address) (bool, error)

	io.Closer
}
