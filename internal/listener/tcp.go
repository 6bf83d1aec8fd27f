package listener

import (
	"net"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// tcpListener wraps a *net.TCPListener. Accept just delegates —
// net.Listener already satisfies the uniform contract here.
type tcpListener struct {
	ln *net.TCPListener
}

// ListenTCP binds addr (host:port) and returns a Listener.
func ListenTCP(addr string) (Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidData, err, "resolving tcp listen address")
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.IO, err, "binding tcp listener")
	}
	return &tcpListener{ln: ln}, nil
}

func (t *tcpListener) Accept() (net.Conn, error) {
	conn, err := t.ln.Accept()
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Transport, err, "tcp accept")
	}
	return conn, nil
}

func (t *tcpListener) Close() error { return t.ln.Close() }

func (t *tcpListener) Addr() net.Addr { return t.ln.Addr() }
