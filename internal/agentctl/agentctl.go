// Package agentctl talks to the GnuPG toolchain itself, not to the
// agent's sockets: it asks gpgconf where a rendezvous file lives, and
// asks gpg-connect-agent to (re)start the agent. Both are external
// collaborators — subprocess invocations, not protocol adapters — so
// this package is deliberately thin.
package agentctl

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// SocketKind selects which agent socket's path or liveness an
// operation concerns.
type SocketKind int

const (
	SocketExtra SocketKind = iota
	SocketSSH
)

func (k SocketKind) dirEntry() string {
	if k == SocketSSH {
		return "agent-ssh-socket"
	}
	return "agent-extra-socket"
}

func (k SocketKind) String() string {
	if k == SocketSSH {
		return "ssh"
	}
	return "extra"
}

// Control invokes the external gpgconf / gpg-connect-agent binaries.
// The binary names are overridable for testing.
type Control struct {
	GpgConf         string
	GpgConnectAgent string
}

// NewControl returns a Control using the binaries found on PATH.
func NewControl() *Control {
	return &Control{
		GpgConf:         "gpgconf",
		GpgConnectAgent: "gpg-connect-agent",
	}
}

// ResolvePath asks gpgconf for the directory entry that names the
// rendezvous file (or socket) for the given socket kind, and returns
// its trimmed output.
func (c *Control) ResolvePath(ctx context.Context, kind SocketKind) (string, error) {
	cmd := exec.CommandContext(ctx, c.gpgconf(), "--list-dirs", kind.dirEntry())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", bridgeerr.New(bridgeerr.Other, "gpgconf --list-dirs %s: %v: %s", kind.dirEntry(), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Ping makes an idempotent attempt to (re)start the agent by sending
// it a trivial command. A nonzero exit means the tool couldn't reach
// or start the agent.
func (c *Control) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.gpgConnectAgent(), "/bye")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return bridgeerr.New(bridgeerr.Other, "gpg-connect-agent /bye: %v: %s", err, stderr.String())
	}
	return nil
}

func (c *Control) gpgconf() string {
	if c.GpgConf != "" {
		return c.GpgConf
	}
	return "gpgconf"
}

func (c *Control) gpgConnectAgent() string {
	if c.GpgConnectAgent != "" {
		return c.GpgConnectAgent
	}
	return "gpg-connect-agent"
}
