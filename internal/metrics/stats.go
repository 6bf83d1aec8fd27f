// Package metrics is a small, optional diagnostics facility: a set of
// atomic counters describing each adapter's activity, plus a periodic
// CSV dump of their values.
package metrics

import (
	"strconv"
	"sync/atomic"
)

// Counters is safe for concurrent use from every adapter goroutine.
type Counters struct {
	ExtraSessions   atomic.Int64
	ExtraBytesIn    atomic.Int64
	ExtraBytesOut   atomic.Int64
	SSHHandlersLive atomic.Int64
	SSHReceived     atomic.Int64
	SSHReplied      atomic.Int64
	Reloads         atomic.Int64
}

// Header names each column in the same order ToSlice emits values.
func (c *Counters) Header() []string {
	return []string{
		"ExtraSessions", "ExtraBytesIn", "ExtraBytesOut",
		"SSHHandlersLive", "SSHReceived", "SSHReplied", "Reloads",
	}
}

// ToSlice snapshots every counter as a CSV row.
func (c *Counters) ToSlice() []string {
	return []string{
		strconv.FormatInt(c.ExtraSessions.Load(), 10),
		strconv.FormatInt(c.ExtraBytesIn.Load(), 10),
		strconv.FormatInt(c.ExtraBytesOut.Load(), 10),
		strconv.FormatInt(c.SSHHandlersLive.Load(), 10),
		strconv.FormatInt(c.SSHReceived.Load(), 10),
		strconv.FormatInt(c.SSHReplied.Load(), 10),
		strconv.FormatInt(c.Reloads.Load(), 10),
	}
}
