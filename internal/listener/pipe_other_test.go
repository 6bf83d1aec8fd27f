//go:build !windows

package listener

import (
	"testing"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

func TestListenPipeUnsupportedOffWindows(t *testing.T) {
	_, err := ListenPipe(`\\.\pipe\gpg-bridge-test`)
	if !bridgeerr.Is(err, bridgeerr.Other) {
		t.Fatalf("expected Other kind, got %v", err)
	}
}
