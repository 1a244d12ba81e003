package clock

import "github.com/google/uuid"

// UUIDGenerator is the production IDGenerator, backed by google/uuid v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Counter is a deterministic IDGenerator for tests: it emits "<prefix>-1",
// "<prefix>-2", ..., or repeatable UUID-shaped IDs when the prefix is empty.
type Counter struct {
	prefix string
	n      int
}

// NewCounter creates a Counter that prefixes generated IDs with prefix.
func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

func (c *Counter) NewID() string {
	c.n++
	if c.prefix == "" {
		return uuid.Must(uuid.NewRandomFromReader(deterministicReader{c.n})).String()
	}
	return c.prefix + "-" + itoa(c.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// deterministicReader feeds uuid.NewRandomFromReader a repeatable byte stream
// keyed on a counter, so tests that need a real UUID shape still get stable
// values. Unused when Counter has a prefix (the common test path).
type deterministicReader struct{ seed int }

func (d deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte((d.seed + i) % 256)
	}
	return len(p), nil
}
