package sshbridge

import "fmt"

// SlotCapacity is the fixed size of a shared-memory slot, matching the
// largest message either side of the exchange may send.
const SlotCapacity = 16384

// Slot is a fixed-capacity byte region, named so an external agent
// process can map or locate the same region.
type Slot interface {
	// Bytes returns the full SlotCapacity-length view. Reads and
	// writes through it are visible to whatever backs the slot.
	Bytes() []byte
	Name() string
	// Close zeroes the region before releasing any OS resources
	// backing it.
	Close() error
}

// SlotFactory creates a new Slot named after the given token mask.
type SlotFactory interface {
	New(mask byte) (Slot, error)
}

// slotName embeds the mask as a single raw byte in the slot's public
// name, following the naming convention the agent side expects.
func slotName(mask byte) string {
	return fmt.Sprintf("gpg_bridge-%c", mask)
}
