// Package rendezvous parses the file GnuPG writes to disk to advertise
// its "extra" Unix-domain-socket emulation: a local TCP port plus a
// 16-byte authentication nonce, in either the Assuan or the Cygwin
// on-disk layout.
//
// The two dialects are detected by content (the Cygwin layout has a
// fixed 10-byte prefix) rather than by file extension or caller hint.
package rendezvous

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/mirror-kt/gpg-bridge/internal/bridgeerr"
)

// Endpoint is the (port, nonce) pair a rendezvous file resolves to.
type Endpoint struct {
	Port  uint16
	Nonce [16]byte
}

const cygwinPrefix = "!<socket >"

// Parse dispatches to the Assuan or Cygwin parser based on the
// Cygwin dialect's fixed prefix.
func Parse(data []byte) (Endpoint, error) {
	if bytes.HasPrefix(data, []byte(cygwinPrefix)) {
		return ParseCygwin(data)
	}
	return ParseAssuan(data)
}

// ParseAssuan parses the plaintext-port + 16-trailing-byte-nonce
// layout. The last 16 bytes of the file are always the nonce; anything
// before that, trimmed of surrounding whitespace, is the decimal port.
func ParseAssuan(data []byte) (Endpoint, error) {
	if len(data) < 17 {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "assuan rendezvous file too short: %d bytes", len(data))
	}

	nonce := data[len(data)-16:]
	portField := bytes.TrimSpace(data[:len(data)-16])

	port, err := parsePort(portField)
	if err != nil {
		return Endpoint{}, err
	}

	var ep Endpoint
	ep.Port = port
	copy(ep.Nonce[:], nonce)
	return ep, nil
}

// ParseCygwin parses the "!<socket >PORT s XXXXXXXX-XXXXXXXX-XXXXXXXX-XXXXXXXXx\0"
// layout. The four 8-hex-digit groups are concatenated in source
// order, with no endian conversion, to produce the 16-byte nonce.
func ParseCygwin(data []byte) (Endpoint, error) {
	if !bytes.HasPrefix(data, []byte(cygwinPrefix)) {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "missing cygwin socket prefix")
	}
	rest := data[len(cygwinPrefix):]

	spaceIdx := bytes.IndexByte(rest, ' ')
	if spaceIdx < 0 {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "cygwin rendezvous file has no port separator")
	}

	port, err := parsePort(rest[:spaceIdx])
	if err != nil {
		return Endpoint{}, err
	}

	if len(rest) < spaceIdx+3 || string(rest[spaceIdx:spaceIdx+3]) != " s " {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "cygwin rendezvous file missing \" s \" separator")
	}
	remaining := rest[spaceIdx+3:]

	const groupLen = 8
	const totalLen = groupLen*4 + 4 // four hex groups + four separators
	if len(remaining) < totalLen {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "cygwin rendezvous file truncated in nonce")
	}

	groups := [4][]byte{
		remaining[0:8],
		remaining[9:17],
		remaining[18:26],
		remaining[27:35],
	}
	seps := []byte{remaining[8], remaining[17], remaining[26], remaining[35]}
	if seps[0] != '-' || seps[1] != '-' || seps[2] != '-' || seps[3] != 'x' {
		return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "cygwin rendezvous file has bad hex-group separators")
	}

	var nonce [16]byte
	for i, g := range groups {
		if !isLowerHex(g) {
			return Endpoint{}, bridgeerr.New(bridgeerr.InvalidData, "cygwin rendezvous file has non-hex group %d: %q", i, g)
		}
		decoded := make([]byte, 4)
		if _, err := hex.Decode(decoded, g); err != nil {
			return Endpoint{}, bridgeerr.Wrap(bridgeerr.InvalidData, err, "decoding cygwin nonce group")
		}
		copy(nonce[i*4:], decoded)
	}

	var ep Endpoint
	ep.Port = port
	ep.Nonce = nonce
	return ep, nil
}

func isLowerHex(b []byte) bool {
	if len(b) != 8 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

func parsePort(field []byte) (uint16, error) {
	n, err := strconv.ParseUint(string(field), 10, 32)
	if err != nil {
		return 0, bridgeerr.Wrap(bridgeerr.InvalidData, err, "parsing rendezvous port")
	}
	if n < 1 || n > 65535 {
		return 0, bridgeerr.New(bridgeerr.InvalidData, "rendezvous port %d out of range 1..=65535", n)
	}
	return uint16(n), nil
}
