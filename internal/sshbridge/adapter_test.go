package sshbridge

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/listener"
)

func TestAdapterRoundTrip(t *testing.T) {
	a := NewAdapter(fallbackSlotFactory{}, staticWindow{}, agentctl.NewControl(), nil)

	ln, err := listener.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()
	go a.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := frame([]byte("ssh-agent-request"))
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := make([]byte, len(req))
	if _, err := io.ReadFull(conn, reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(reply) != string(req) {
		t.Fatalf("reply = %x, want echo %x", reply, req)
	}
}

func TestAdapterPoolSaturationBlocksFifthConnection(t *testing.T) {
	a := NewAdapter(fallbackSlotFactory{}, staticWindow{}, agentctl.NewControl(), nil)

	ln, err := listener.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()
	go a.Serve(ln)

	conns := make([]net.Conn, 0, maxHandlers)
	for i := 0; i < maxHandlers; i++ {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	// None of these four connections send a request, so each handler
	// sits blocked reading the length header, holding its token live.
	time.Sleep(200 * time.Millisecond)

	fifth, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial fifth: %v", err)
	}
	defer fifth.Close()

	// The fifth connection's handler is stuck waiting for a free
	// token. Closing one of the first four must free it up.
	conns[0].Close()

	req := frame([]byte("hi"))
	fifth.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := fifth.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := make([]byte, len(req))
	if _, err := io.ReadFull(fifth, reply); err != nil {
		t.Fatalf("5th connection never got serviced after a token freed up: %v", err)
	}
	if string(reply) != string(req) {
		t.Fatalf("reply = %x, want echo %x", reply, req)
	}
}
