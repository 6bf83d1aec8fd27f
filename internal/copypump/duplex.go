package copypump

import (
	"io"

	"golang.org/x/sync/errgroup"
)

// Duplex runs two Pump calls concurrently — client-to-agent and
// agent-to-client — over the already-split halves of each
// connection, and waits for both to finish. The two directions are
// independent flows, not one pipe that tears both sides down
// together: neither side's ordering or lifetime is observable to the
// other, so nothing here closes the peer early. errgroup.Group
// collects the first error from either direction without forcing the
// other to stop.
//
// Taking the already-split readers and writers (rather than two
// io.ReadWriters) makes the concurrency-safety requirement explicit:
// clientR and clientW may be the same underlying connection read from
// one goroutine and written from another simultaneously.
func Duplex(clientR io.Reader, clientW io.Writer, agentR io.Reader, agentW io.Writer) (toAgent, toClient int64, err error) {
	var g errgroup.Group
	g.Go(func() error {
		n, err := Pump("client->agent", clientR, agentW)
		toAgent = n
		return err
	})
	g.Go(func() error {
		n, err := Pump("agent->client", agentR, clientW)
		toClient = n
		return err
	})
	err = g.Wait()
	return toAgent, toClient, err
}
