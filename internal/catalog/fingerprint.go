package catalog

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes normalized values into a short stable token, used as an
// HTTP ETag and to tell whether a reload changed anything. Values that fail
// to marshal contribute nothing.
func Fingerprint(parts ...any) string {
	d := xxhash.New()
	for _, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			continue
		}
		_, _ = d.Write(b)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
