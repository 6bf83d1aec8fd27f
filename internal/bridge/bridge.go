// Package bridge wires one socket kind's endpoint and adapter
// together: best-effort ping the agent, parse the listen address,
// build the matching listener, and run the adapter's accept loop.
package bridge

import (
	"context"
	"log"
	"strings"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/extra"
	"github.com/mirror-kt/gpg-bridge/internal/listener"
	"github.com/mirror-kt/gpg-bridge/internal/metrics"
	"github.com/mirror-kt/gpg-bridge/internal/sshbridge"
)

const namedPipePrefix = `\\.\pipe\`

// isNamedPipe reports whether endpointSpec names a Windows named pipe
// rather than a TCP bind address.
func isNamedPipe(endpointSpec string) bool {
	return strings.HasPrefix(endpointSpec, namedPipePrefix)
}

// listen builds the listener implied by endpointSpec's shape.
func listen(endpointSpec string) (listener.Listener, error) {
	if isNamedPipe(endpointSpec) {
		return listener.ListenPipe(endpointSpec)
	}
	return listener.ListenTCP(endpointSpec)
}

// Config bundles the inputs to Run.
type Config struct {
	Kind         agentctl.SocketKind
	EndpointSpec string
	OverridePath string // extra socket only; ignored for SocketSSH
	Control      *agentctl.Control
	Stats        *metrics.Counters
}

// Run pings the agent once, builds the listener named by cfg, and
// runs the matching adapter's accept loop until it fails fatally.
func Run(cfg Config) error {
	ctx := context.Background()
	if err := cfg.Control.Ping(ctx); err != nil {
		log.Printf("bridge: initial ping: %v", err)
	}

	ln, err := listen(cfg.EndpointSpec)
	if err != nil {
		return err
	}
	defer ln.Close()

	switch cfg.Kind {
	case agentctl.SocketExtra:
		a := extra.NewAdapter(cfg.Control, cfg.OverridePath, readFile, fileExists, cfg.Stats)
		return a.Serve(ln)
	case agentctl.SocketSSH:
		a := sshbridge.NewAdapter(sshbridge.NewSlotFactory(), sshbridge.NewAgentWindow(), cfg.Control, cfg.Stats)
		return a.Serve(ln)
	default:
		panic("bridge: unknown socket kind")
	}
}
