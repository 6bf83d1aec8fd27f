// Package copypump runs the half-duplex byte-forwarding loop used by
// the extra adapter: read until EOF, write everything read, shut the
// writer down cleanly, and scrub the buffer before it's released.
package copypump

import (
	"io"
	"log"
)

const bufSize = 4096

// closeWriter is implemented by writers that support a half-close,
// e.g. *net.TCPConn (CloseWrite) and go-winio's message-mode pipes.
type closeWriter interface {
	CloseWrite() error
}

// Pump copies from r to w until r reports io.EOF, then performs an
// orderly shutdown of w (CloseWrite if available) and zeroes its
// buffer. Any read or write error besides a clean EOF is returned.
//
// Pump deliberately never takes an io.WriterTo/io.ReaderFrom fast
// path: the buffer must be the one that gets zeroed on the way out,
// since it may have carried agent traffic.
func Pump(tag string, r io.Reader, w io.Writer) (total int64, err error) {
	buf := make([]byte, bufSize)
	defer zero(buf)

	for {
		nr, rerr := r.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				shutdown(tag, w)
				return total, nil
			}
			return total, rerr
		}
	}
}

func shutdown(tag string, w io.Writer) {
	if cw, ok := w.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			log.Printf("%s: close-write: %v", tag, err)
		}
	}
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
