// Package extra implements the extra-socket protocol adapter: parse
// the agent's rendezvous file, authenticate a TCP connection to the
// agent by replaying its nonce, then stream bytes bidirectionally
// between client and agent until either side closes.
package extra

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
	"github.com/mirror-kt/gpg-bridge/internal/copypump"
	"github.com/mirror-kt/gpg-bridge/internal/listener"
	"github.com/mirror-kt/gpg-bridge/internal/metrics"
	"github.com/mirror-kt/gpg-bridge/internal/rendezvous"
	"github.com/mirror-kt/gpg-bridge/internal/streamio"
)

// ReadFile abstracts reading the rendezvous file so tests can stub it
// without touching the filesystem.
type ReadFile func(path string) ([]byte, error)

// FileExists abstracts the existence check used before deciding to
// ping the agent.
type FileExists func(path string) bool

// Adapter is the extra-socket protocol adapter. It caches the
// (port, nonce) pair it resolves from the rendezvous file across
// connections, and invalidates the cache whenever a connection attempt
// fails.
type Adapter struct {
	control  *agentctl.Control
	readFile ReadFile
	exists   FileExists
	stats    *metrics.Counters

	mu           sync.Mutex
	overridePath string // preset path, never cleared
	resolvedPath string // lazily resolved path, kept once resolved
	endpoint     *rendezvous.Endpoint
}

// NewAdapter builds an extra adapter. overridePath, if non-empty,
// always wins over resolving the path via agentctl.
func NewAdapter(control *agentctl.Control, overridePath string, readFile ReadFile, exists FileExists, stats *metrics.Counters) *Adapter {
	return &Adapter{
		control:      control,
		readFile:     readFile,
		exists:       exists,
		stats:        stats,
		overridePath: overridePath,
	}
}

// Serve runs the accept loop: each accepted connection is handled in
// its own goroutine. Serve returns only when Accept itself fails
// fatally.
func (a *Adapter) Serve(ln listener.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go a.handle(conn)
	}
}

func (a *Adapter) handle(conn net.Conn) {
	defer conn.Close()
	ctx := context.Background()

	ep, err := a.endpointFor(ctx)
	if err != nil {
		log.Printf("extra: resolving agent endpoint: %v", err)
		return
	}

	agentConn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", ep.Port))
	if err != nil {
		// Best-effort nudge; its own outcome doesn't change the
		// error we surface for this connection.
		_ = a.control.Ping(ctx)
		a.invalidate()
		log.Printf("extra: dialing agent on port %d: %v", ep.Port, err)
		return
	}
	defer agentConn.Close()

	if _, err := agentConn.Write(ep.Nonce[:]); err != nil {
		a.invalidate()
		log.Printf("extra: replaying nonce: %v", err)
		return
	}

	clientR, clientW := streamio.Split(conn)
	agentR, agentW := streamio.Split(agentConn)

	toAgent, toClient, err := copypump.Duplex(clientR, clientW, agentR, agentW)
	if err != nil {
		log.Printf("extra: session ended: %v", err)
	}
	if a.stats != nil {
		a.stats.ExtraSessions.Add(1)
		a.stats.ExtraBytesIn.Add(toAgent)
		a.stats.ExtraBytesOut.Add(toClient)
	}
}

// endpointFor returns the cached endpoint, loading and caching it
// under the lock if the cache is empty. The lock is never held across
// the file read's caller (agentctl calls and filesystem read happen
// inline here, which is acceptable since they are one-shot per cache
// miss and never span the long-lived duplex copy that follows).
func (a *Adapter) endpointFor(ctx context.Context) (rendezvous.Endpoint, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.endpoint != nil {
		return *a.endpoint, nil
	}

	path, err := a.resolvePathLocked(ctx)
	if err != nil {
		return rendezvous.Endpoint{}, err
	}

	if !a.exists(path) {
		// Best effort; if this doesn't bring the agent up, the
		// subsequent read below will fail with NotFound anyway.
		_ = a.control.Ping(ctx)
	}

	data, err := a.readFile(path)
	if err != nil {
		return rendezvous.Endpoint{}, bridgeerr.Wrap(bridgeerr.NotFound, err, "reading rendezvous file")
	}

	ep, err := rendezvous.Parse(data)
	if err != nil {
		return rendezvous.Endpoint{}, err
	}

	a.endpoint = &ep
	return ep, nil
}

func (a *Adapter) resolvePathLocked(ctx context.Context) (string, error) {
	if a.overridePath != "" {
		return a.overridePath, nil
	}
	if a.resolvedPath != "" {
		return a.resolvedPath, nil
	}
	path, err := a.control.ResolvePath(ctx, agentctl.SocketExtra)
	if err != nil {
		return "", err
	}
	a.resolvedPath = path
	return path, nil
}

// invalidate discards the cached endpoint so the next connection
// reparses the rendezvous file. It does not clear the resolved path:
// only the (port, nonce) pair goes stale when the agent restarts, not
// the path gpgconf reports.
func (a *Adapter) invalidate() {
	a.mu.Lock()
	a.endpoint = nil
	a.mu.Unlock()
}
