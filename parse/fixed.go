package parse

import "github.com/ClickHouse/ch-native-core/ring"

// TryReadFixed copies exactly len(out) bytes from r into out if that many
// are available, returning true; otherwise it reads nothing and returns
// false so the caller can retry once more bytes arrive.
func TryReadFixed(r *ring.Ring, out []byte) bool {
	if r.Size() < len(out) {
		return false
	}
	r.Read(out)
	return true
}
