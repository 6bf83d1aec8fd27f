// Package sshbridge implements the ssh-socket protocol adapter: each
// accepted connection is handled by exchanging bounded shared-memory
// messages with the agent window, bounded to a pool of four
// concurrent handlers.
package sshbridge

import (
	"context"
	"io"
	"log"
	"net"
	"sync/atomic"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/listener"
	"github.com/mirror-kt/gpg-bridge/internal/metrics"
)

// Adapter runs the ssh-socket accept loop.
type Adapter struct {
	pool    *TokenPool
	factory SlotFactory
	window  AgentWindow
	control *agentctl.Control
	stats   *metrics.Counters

	reload atomic.Bool
}

// NewAdapter builds an adapter with a fresh 4-permit token pool.
func NewAdapter(factory SlotFactory, window AgentWindow, control *agentctl.Control, stats *metrics.Counters) *Adapter {
	return &Adapter{
		pool:    NewTokenPool(),
		factory: factory,
		window:  window,
		control: control,
		stats:   stats,
	}
}

// Serve runs the accept loop: before each Accept, if ReloadFlag is
// set, ping the agent and clear it. Each accepted connection is
// handled in its own goroutine. Serve returns only when Accept itself
// fails fatally.
func (a *Adapter) Serve(ln listener.Listener) error {
	ctx := context.Background()
	for {
		if a.reload.Load() {
			_ = a.control.Ping(ctx)
			if a.stats != nil {
				a.stats.Reloads.Add(1)
			}
			a.reload.Store(false)
		}

		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go a.handle(ctx, conn)
	}
}

func (a *Adapter) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	handler, err := NewHandler(ctx, a.pool, a.factory, a.window)
	if err != nil {
		log.Printf("sshbridge: constructing handler: %v", err)
		a.reload.Store(true)
		return
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Printf("sshbridge: handler teardown: %v", err)
		}
	}()

	if a.stats != nil {
		a.stats.SSHHandlersLive.Add(1)
		defer a.stats.SSHHandlersLive.Add(-1)
	}

	for {
		err := handler.Exchange(conn, conn)
		if a.stats != nil {
			a.stats.SSHReceived.Store(handler.Received)
			a.stats.SSHReplied.Store(handler.Replied)
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("sshbridge: session error: %v", err)
			a.reload.Store(true)
			return
		}
	}
}
