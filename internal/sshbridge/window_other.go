//go:build !windows

package sshbridge

import "github.com/mirror-kt/gpg-bridge/internal/bridgeerr"

type noWindow struct{}

// NewAgentWindow returns a notifier that always fails: there is no
// window message IPC off Windows. Tests supply their own AgentWindow
// fake instead of this type.
func NewAgentWindow() AgentWindow { return noWindow{} }

func (noWindow) Notify(slotName string) error {
	return bridgeerr.New(bridgeerr.Other, "agent window IPC is only supported on windows")
}
