package order

import (
	"fmt"
	"sync"
	"time"
)

const DefaultIDPrefix = "SIP-"

// IDGenerator produces order ids of the form prefix + last six digits of the
// epoch milliseconds. Successive ids from one generator never repeat within
// the same millisecond: a clash bumps the millisecond forward.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	now    func() time.Time
	last   int64
}

func NewIDGenerator(prefix string, now func() time.Time) *IDGenerator {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{prefix: prefix, now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s%06d", g.prefix, ms%1_000_000)
}
