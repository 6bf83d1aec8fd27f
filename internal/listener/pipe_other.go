//go:build !windows

package listener

import (
	"net"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// ListenPipe is unavailable outside Windows: named pipes in the
// \\.\pipe\ namespace are a Windows-only construct. This stub exists
// only so the package — and the platform-agnostic parsers and state
// machines that live alongside it — still build and test on other
// platforms.
func ListenPipe(path string) (Listener, error) {
	return nil, bridgeerr.New(bridgeerr.Other, "named pipe listener is only supported on windows")
}
