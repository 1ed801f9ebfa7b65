// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package shard

import "fmt"

// CapacityStats is a snapshot of the utilization of a shard. It is computed
// on demand and not updated when the shard changes.
type CapacityStats struct {
	CurrentItems          int
	MaxCapacity           int
	RemainingCapacity     int
	UtilizationPercentage float32
	LoadFactor            float32
	ReservedCapacity      int // size of the pre-allocated entry buffer
	IsFull                bool
	IsEmpty               bool
}

func (s CapacityStats) String() string {
	return fmt.Sprintf(
		"items: %d/%d, remaining: %d, utilization: %.1f%%, load factor: %.2f, reserved: %d, full: %t, empty: %t",
		s.CurrentItems, s.MaxCapacity, s.RemainingCapacity,
		s.UtilizationPercentage, s.LoadFactor, s.ReservedCapacity,
		s.IsFull, s.IsEmpty,
	)
}
