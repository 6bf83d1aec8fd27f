package extra

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/mirror-kt/gpg-bridge/internal/agentctl"
	"github.com/mirror-kt/gpg-bridge/internal/listener"
)

// fakeAgent is a TCP server standing in for the real GnuPG agent: it
// expects the given nonce as the first 16 bytes, then echoes whatever
// follows.
type fakeAgent struct {
	ln    net.Listener
	nonce [16]byte
}

func startFakeAgent(t *testing.T, nonce [16]byte) *fakeAgent {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fa := &fakeAgent{ln: ln, nonce: nonce}
	go fa.serve(t)
	return fa
}

func (fa *fakeAgent) port(t *testing.T) int {
	return fa.ln.Addr().(*net.TCPAddr).Port
}

func (fa *fakeAgent) serve(t *testing.T) {
	for {
		conn, err := fa.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			var got [16]byte
			if _, err := io.ReadFull(conn, got[:]); err != nil {
				return
			}
			if got != fa.nonce {
				return
			}
			io.Copy(conn, conn)
		}()
	}
}

func (fa *fakeAgent) Close() { fa.ln.Close() }

func writeFakeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake script harness uses a shell shebang")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing fake script: %v", err)
	}
	return path
}

func TestExtraAdapterRoundTrip(t *testing.T) {
	nonce := [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf}
	agent := startFakeAgent(t, nonce)
	defer agent.Close()

	port := agent.port(t)
	file := []byte(portToAssuan(port, nonce))

	dir := t.TempDir()
	script := writeFakeScript(t, dir, "gpg-connect-agent", "exit 0\n")
	control := &agentctl.Control{GpgConnectAgent: script}

	readFile := func(path string) ([]byte, error) { return file, nil }
	exists := func(path string) bool { return true }

	a := NewAdapter(control, "/fake/rendezvous", readFile, exists, nil)

	ln, err := listener.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	go a.Serve(ln)

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := make([]byte, 5)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != "hello" {
		t.Fatalf("reply = %q, want %q", reply, "hello")
	}
}

func TestExtraAdapterInvalidatesCacheOnFailure(t *testing.T) {
	nonceA := [16]byte{1}
	nonceB := [16]byte{2}

	agentA := startFakeAgent(t, nonceA)
	portA := agentA.port(t)

	var mu sync.Mutex
	currentFile := []byte(portToAssuan(portA, nonceA))

	dir := t.TempDir()
	script := writeFakeScript(t, dir, "gpg-connect-agent", "exit 0\n")
	control := &agentctl.Control{GpgConnectAgent: script}

	readFile := func(path string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		return currentFile, nil
	}
	exists := func(path string) bool { return true }

	a := NewAdapter(control, "/fake/rendezvous", readFile, exists, nil)

	ln, err := listener.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()
	go a.Serve(ln)

	// First connection succeeds against agent A.
	client1, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial 1: %v", err)
	}
	client1.Write([]byte("x"))
	reply := make([]byte, 1)
	client1.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client1, reply); err != nil {
		t.Fatalf("read 1: %v", err)
	}
	client1.Close()

	// Agent A goes away, agent B starts, and the rendezvous file now
	// points at agent B.
	agentA.Close()
	agentB := startFakeAgent(t, nonceB)
	defer agentB.Close()
	portB := agentB.port(t)

	mu.Lock()
	currentFile = []byte(portToAssuan(portB, nonceB))
	mu.Unlock()

	// Second connection still uses the cached (now-stale) endpoint
	// and fails — this invalidates the cache.
	client2, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial 2: %v", err)
	}
	client2.Write([]byte("y"))
	client2.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := client2.Read(make([]byte, 1))
	if n != 0 {
		t.Fatalf("expected no echo on stale endpoint, got %d bytes", n)
	}
	client2.Close()

	// Give the failed handler goroutine a moment to invalidate the
	// cache before the third connection arrives.
	time.Sleep(100 * time.Millisecond)

	// Third connection reparses the file and reaches agent B.
	client3, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial 3: %v", err)
	}
	defer client3.Close()
	client3.Write([]byte("z"))
	client3.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply3 := make([]byte, 1)
	if _, err := io.ReadFull(client3, reply3); err != nil {
		t.Fatalf("read 3: %v", err)
	}
	if reply3[0] != 'z' {
		t.Fatalf("reply3 = %q, want 'z'", reply3)
	}
}

// portToAssuan builds a minimal Assuan-dialect rendezvous file for a
// given port and nonce.
func portToAssuan(port int, nonce [16]byte) string {
	return intToDecimal(port) + "\n" + string(nonce[:])
}

func intToDecimal(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}
