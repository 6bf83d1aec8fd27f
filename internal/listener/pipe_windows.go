//go:build windows

package listener

import (
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// pipeListener wraps go-winio's named-pipe listener. go-winio's
// win32PipeListener already creates a fresh pipe instance before
// handing back a previously-connected one on each Accept — exactly
// the re-arm invariant this bridge's named-pipe endpoint needs — so
// there is no hand-rolled CreateNamedPipe/ConnectNamedPipe sequencing
// here.
type pipeListener struct {
	ln net.Listener
}

// ListenPipe creates a single-instance named-pipe server at path. The
// first-instance flag is implicit in go-winio's CreateFile call: if
// the pipe name is already bound by another server, Listen fails
// immediately instead of queuing behind it.
func ListenPipe(path string) (Listener, error) {
	ln, err := winio.ListenPipe(path, nil)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.IO, err, "creating named pipe listener")
	}
	return &pipeListener{ln: ln}, nil
}

func (p *pipeListener) Accept() (net.Conn, error) {
	conn, err := p.ln.Accept()
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Transport, err, "named pipe accept")
	}
	return conn, nil
}

func (p *pipeListener) Close() error { return p.ln.Close() }

func (p *pipeListener) Addr() net.Addr { return p.ln.Addr() }
