package streamio

import (
	"io"
	"net"
	"testing"
)

func TestSplitTCPCloseWriteOnly(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf, _ := io.ReadAll(conn)
		if string(buf) != "ping" {
			t.Errorf("server got %q, want %q", buf, "ping")
		}
		conn.Write([]byte("pong"))
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	r, w := Split(client)

	if _, err := w.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close write half: %v", err)
	}

	<-serverDone

	reply, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != "pong" {
		t.Fatalf("reply = %q, want %q", reply, "pong")
	}
}
