package conn

import (
	"crypto/rand"
	"strconv"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/spaolacci/murmur3"
)

var connSeq uint64

func nextConnSeq() uint64 {
	return atomic.AddUint64(&connSeq, 1)
}

// fingerprint derives a short, cheap, non-cryptographic identifier for a
// connection's whole lifetime, used only in log fields. It is distinct
// from per-request IDs (below), which need to be time-sortable rather
// than merely unique.
func fingerprint(remoteAddr string, seq uint64) string {
	h := murmur3.Sum32([]byte(remoteAddr + "#" + strconv.FormatUint(seq, 10)))
	return strconv.FormatUint(uint64(h), 16)
}

// newRequestID returns a time-sortable identifier attached to a single
// pending request, for log correlation only — it never appears on the
// wire and plays no part in FIFO reply matching.
func newRequestID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
