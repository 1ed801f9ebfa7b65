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

import "testing"

func TestEntry_String(t *testing.T) {
	e := Entry[uint64, string]{Key: 12, Val: "Alice"}
	if got, want := e.String(), "Entry: 12 -> Alice"; got != want {
		t.Errorf("unexpected print, wanted %q, got %q", want, got)
	}
}
