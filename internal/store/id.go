package store

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Lesson ids are ULIDs: 48 bits of millisecond timestamp followed by 80
// bits of randomness, Crockford base32 encoded to 26 characters. Ids sort
// by creation time.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	idMu    sync.Mutex
	lastMS  uint64
	lastSeq uint16
)

// NewID returns a fresh lesson id. Ids from the same millisecond carry an
// increasing sequence in the first random bytes so they stay ordered.
func NewID() string {
	return newID(time.Now())
}

func newID(now time.Time) string {
	idMu.Lock()
	ms := uint64(now.UnixMilli())
	if ms <= lastMS {
		ms = lastMS
		lastSeq++
	} else {
		lastMS = ms
		lastSeq = 0
	}
	seq := lastSeq
	idMu.Unlock()

	var b [16]byte
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeID(b)
}

// encodeID writes the 128 bits as 26 base32 digits, most significant
// first. The leading digit carries only the top 3 bits.
func encodeID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
