// internal/audio/audio.go
package audio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Player is the playback collaborator the courtroom core drives. Play is a
// one-shot cue, PlayLoop swaps the ambient track. Both are best-effort:
// implementations must swallow playback failures (blocked autoplay, missing
// asset) and must never block the caller.
type Player interface {
	Play(clip string)
	PlayLoop(track string)
	StopLoop()
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Play(string)     {}
func (Nop) PlayLoop(string) {}
func (Nop) StopLoop()       {}

// LogPlayer is the default headless Player. It records playback intent to
// the log and nothing else.
type LogPlayer struct {
	Log *logrus.Logger

	mu   sync.Mutex
	loop string
}

func (p *LogPlayer) Play(clip string) {
	p.Log.WithField("clip", clip).Debug("audio cue")
}

func (p *LogPlayer) PlayLoop(track string) {
	p.mu.Lock()
	p.loop = track
	p.mu.Unlock()
	p.Log.WithField("track", track).Debug("ambient track started")
}

func (p *LogPlayer) StopLoop() {
	p.mu.Lock()
	track := p.loop
	p.loop = ""
	p.mu.Unlock()
	if track != "" {
		p.Log.WithField("track", track).Debug("ambient track stopped")
	}
}
