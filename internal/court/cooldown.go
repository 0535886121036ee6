// internal/court/cooldown.go
package court

import (
	"sync"
	"time"

	"github.com/nvelasco/karmacourt/internal/clock"
)

// Cooldowns observed server-side; the gates mirror them locally so the UI
// can refuse early without a round trip. The server remains the real
// enforcement point and independently rejects out-of-cooldown attempts.
const (
	evidenceCooldown  = 3 * time.Second
	objectionCooldown = 10 * time.Second
)

// Gate is a client-side cooldown for one gated action. State is purely
// local: it resets to unlocked on reload and is never persisted.
type Gate struct {
	clk clock.Clock

	mu     sync.Mutex
	expiry time.Time
}

func NewGate(clk clock.Clock) *Gate {
	return &Gate{clk: clk}
}

// Activate starts the cooldown window.
func (g *Gate) Activate(d time.Duration) {
	g.mu.Lock()
	g.expiry = g.clk.Now().Add(d)
	g.mu.Unlock()
}

// Remaining returns the time left on the cooldown, zero when unlocked.
// It is re-derived from the clock on every call, so a UI can poll it
// (typically every 100ms) to render a draining indicator.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	expiry := g.expiry
	g.mu.Unlock()
	if r := expiry.Sub(g.clk.Now()); r > 0 {
		return r
	}
	return 0
}

// Allowed reports whether the gated action may fire.
func (g *Gate) Allowed() bool {
	return g.Remaining() <= 0
}
