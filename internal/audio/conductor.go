// internal/audio/conductor.go
package audio

import (
	"sync"

	"github.com/nvelasco/karmacourt/internal/protocol"
)

// Ambient track names served under /sounds/ by the court backend.
const (
	TrackLobby = "lobby_theme"
	TrackTrial = "trial_theme"
)

// TrackFor returns the ambient track a snapshot calls for: the trial theme
// once a verdict exists or someone is on the dock, the lobby theme otherwise.
func TrackFor(s protocol.Snapshot) string {
	if s.Verdict != "" || !s.AccusedUnknown() {
		return TrackTrial
	}
	return TrackLobby
}

// Conductor swaps the looping ambient track when the snapshot-derived track
// name changes. Feed it every applied snapshot; repeated snapshots with the
// same derived track are no-ops so the loop never restarts mid-phase.
type Conductor struct {
	player Player

	mu      sync.Mutex
	current string
}

func NewConductor(player Player) *Conductor {
	return &Conductor{player: player}
}

// Observe reacts to an applied snapshot.
func (c *Conductor) Observe(s protocol.Snapshot) {
	next := TrackFor(s)
	c.mu.Lock()
	if c.current == next {
		c.mu.Unlock()
		return
	}
	c.current = next
	c.mu.Unlock()
	c.player.PlayLoop(next)
}

// Stop silences the ambient loop, e.g. on session teardown.
func (c *Conductor) Stop() {
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
	c.player.StopLoop()
}
