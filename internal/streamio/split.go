// Package streamio exposes any connection — TCP or named pipe — as an
// independent (reader, writer) pair usable concurrently by the two
// copy-pump goroutines in a duplex session.
package streamio

import (
	"io"
	"net"
)

// closeWriteConn is implemented by *net.TCPConn and by go-winio's
// message-mode pipe conns.
type closeWriteConn interface {
	CloseWrite() error
}

// closeReadConn is implemented by *net.TCPConn. Named-pipe conns have
// no read-half shutdown; Close() on the read half is a no-op there,
// since the pipe's single handle is only fully torn down once by the
// adapter after both pumps finish.
type closeReadConn interface {
	CloseRead() error
}

// Split returns independent (reader, writer) halves of conn. Both
// halves share the same underlying handle; for TCP this is the
// platform's native half-close, and for named pipes it relies on
// go-winio's handle already being safe for a concurrent Read from one
// goroutine and Write from another — overlapped I/O on Windows uses
// distinct OVERLAPPED structures per operation, so the two copy pumps
// never contend on the same in-flight call.
func Split(conn net.Conn) (io.ReadCloser, io.WriteCloser) {
	return &readHalf{conn}, &writeHalf{conn}
}

type readHalf struct{ net.Conn }

func (r *readHalf) Close() error {
	if cr, ok := r.Conn.(closeReadConn); ok {
		return cr.CloseRead()
	}
	return nil
}

type writeHalf struct{ net.Conn }

func (w *writeHalf) Close() error {
	if cw, ok := w.Conn.(closeWriteConn); ok {
		return cw.CloseWrite()
	}
	return nil
}

func (w *writeHalf) CloseWrite() error {
	return w.Close()
}
