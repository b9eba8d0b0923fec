package bb84

import (
	"io"

	"golang.org/x/crypto/sha3"
)

// newSecret returns an endless stream of pre-shared secret derived from seed.
// Two calls with the same seed yield identical streams, one per peer.
func newSecret(seed []byte) io.Reader {
	h := sha3.NewShake256()
	h.Write([]byte("bb84/public-channel"))
	h.Write(seed)
	return h
}
