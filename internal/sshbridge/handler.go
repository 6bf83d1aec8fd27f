package sshbridge

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// Handler owns one token and one shared-memory slot for the lifetime
// of a single client connection, and runs the request/response
// exchange against the agent window once per message.
type Handler struct {
	token  *Token
	slot   Slot
	window AgentWindow

	Received int64
	Replied  int64
}

// NewHandler acquires a token and a slot, in that order, rolling back
// whatever it already holds if a later step fails.
func NewHandler(ctx context.Context, pool *TokenPool, factory SlotFactory, window AgentWindow) (*Handler, error) {
	token, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	slot, err := factory.New(token.Mask())
	if err != nil {
		token.Release()
		return nil, err
	}

	return &Handler{token: token, slot: slot, window: window}, nil
}

// Close tears the handler down: zero the view (Slot.Close does this),
// unmap/release it, then release the token. Always run, even after an
// Exchange error.
func (h *Handler) Close() error {
	err := h.slot.Close()
	h.token.Release()
	return err
}

// Exchange runs one request/response cycle: read a framed request
// from r, hand it to the agent via the shared slot, and write the
// framed response to w.
//
// It returns io.EOF when r closed cleanly at a 4-byte length
// boundary — the session ended with no more messages pending, not a
// failure. Any other error, including EOF encountered mid-payload, is
// returned wrapped with a bridgeerr Kind.
func (h *Handler) Exchange(r io.Reader, w io.Writer) error {
	view := h.slot.Bytes()

	if _, err := io.ReadFull(r, view[:4]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return bridgeerr.Wrap(bridgeerr.Transport, err, "reading request length")
	}

	total, err := framedLen(view[:4])
	if err != nil {
		return err
	}

	if total > 4 {
		if _, err := io.ReadFull(r, view[4:total]); err != nil {
			return bridgeerr.Wrap(bridgeerr.Transport, err, "reading request payload")
		}
	}
	h.Received += int64(total)

	if err := h.window.Notify(h.slot.Name()); err != nil {
		return err
	}

	respTotal, err := framedLen(view[:4])
	if err != nil {
		return err
	}
	h.Replied += int64(respTotal)

	if _, err := w.Write(view[:respTotal]); err != nil {
		return bridgeerr.Wrap(bridgeerr.Transport, err, "writing response")
	}
	return nil
}

// framedLen reads the 4-byte big-endian payload length from the front
// of the view and returns payload_len+4, bounds-checked against
// SlotCapacity.
func framedLen(header []byte) (int, error) {
	payloadLen := binary.BigEndian.Uint32(header)
	total := int(payloadLen) + 4
	if total > SlotCapacity {
		return 0, bridgeerr.New(bridgeerr.Other, "message too large: %d bytes", total)
	}
	return total, nil
}
