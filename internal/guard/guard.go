// Package guard enforces the per-runtime resource ceilings: a byte limit
// on heap growth during engine operations and a truncation ceiling on
// diagnostic text crossing the boundary.
package guard

import (
	"fmt"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/embedvm/jsvm/types"
)

// TruncationMarker is appended to any diagnostic text cut by TruncateLog,
// so callers can detect truncated output.
const TruncationMarker = "... [truncated]"

// Guard watches heap growth while an operation runs. The engine exposes no
// allocator hook, so breaches are detected by sampling the Go heap at a
// fixed checkpoint interval and surfaced through the cooperative interrupt
// flag, which unwinds as a catchable ResourceExhausted condition instead of
// aborting the process.
type Guard struct {
	limit    uint64 // bytes, 0 = unbounded
	interval time.Duration

	mu        sync.Mutex
	highWater uint64
}

// New creates a guard with the given growth ceiling and checkpoint interval.
func New(limit uint64, interval time.Duration) *Guard {
	if interval <= 0 {
		interval = types.DefaultCheckpointInterval
	}
	return &Guard{limit: limit, interval: interval}
}

// Limit returns the configured ceiling in bytes, 0 when unbounded.
func (g *Guard) Limit() uint64 {
	return g.limit
}

// HighWater returns the largest heap growth observed during any guarded
// operation so far.
func (g *Guard) HighWater() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.highWater
}

// Watch starts sampling for one operation and returns a stop function that
// must be called when the operation leaves the engine. On breach the guard
// calls interrupt once with a ResourceExhausted cause and stops sampling.
// With no limit configured, Watch is a no-op.
func (g *Guard) Watch(interrupt func(cause *types.BridgeError)) (stop func()) {
	if g.limit == 0 {
		return func() {}
	}
	base := heapAlloc()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cur := heapAlloc()
				if cur <= base {
					// the collector ran; growth attributable to the
					// operation is gone, reset the baseline
					base = cur
					continue
				}
				growth := cur - base
				g.note(growth)
				if growth > g.limit {
					interrupt(types.NewResourceExhausted(
						fmt.Sprintf("memory limit of %d bytes exceeded", g.limit)))
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (g *Guard) note(growth uint64) {
	g.mu.Lock()
	if growth > g.highWater {
		g.highWater = growth
	}
	g.mu.Unlock()
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// TruncateLog caps msg at max bytes, cutting on a rune boundary and
// appending TruncationMarker. max <= 0 disables truncation.
func TruncateLog(msg string, max int) string {
	if max <= 0 || len(msg) <= max {
		return msg
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + TruncationMarker
}
