package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job ids are ULIDs: a 48-bit millisecond timestamp followed by 80 bits
// of randomness, Crockford base32 encoded, so ids sort by creation time.
// Ids minted in the same millisecond carry an increasing sequence in the
// first two random bytes.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	idMu   sync.Mutex
	idLast uint64
	idSeq  uint16
)

func newJobID() string {
	return newULID(time.Now())
}

func newULID(now time.Time) string {
	ts := uint64(now.UnixMilli())

	idMu.Lock()
	if ts == idLast {
		idSeq++
	} else {
		idLast, idSeq = ts, 0
	}
	seq := idSeq
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeBase32(b)
}

// encodeBase32 writes 128 bits as 26 Crockford characters, most
// significant first. The leading character carries the top 3 bits.
func encodeBase32(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
