// internal/court/transient.go
package court

import (
	"sync"
	"time"

	"github.com/nvelasco/karmacourt/internal/audio"
	"github.com/nvelasco/karmacourt/internal/clock"
)

// Transient effect windows. The objection shake and banner run on
// independent timers; a new objection mid-animation supersedes both, so the
// most recent objector always owns the banner.
const (
	shakeDuration  = 500 * time.Millisecond
	bannerDuration = 2 * time.Second
	noticeDuration = 3 * time.Second
)

// Effects is the self-expiring local presentation state derived from
// one-shot events. It lives entirely outside the authoritative snapshot.
type Effects struct {
	// Shaking is true for a short window after an objection.
	Shaking bool
	// Objector is the banner text, empty when the banner is hidden.
	Objector string
	// Notice is a short-lived user-facing message (server errors, local
	// protocol-halted warnings), empty when none is showing.
	Notice string
}

// EffectPlayer converts server-pushed one-shot events into timed Effects
// state, decoupled from snapshot processing. notify runs on the goroutine
// that triggered the change, including timer expiries.
type EffectPlayer struct {
	clk    clock.Clock
	player audio.Player
	notify func(Effects)

	mu          sync.Mutex
	effects     Effects
	shakeTimer  clock.Timer
	bannerTimer clock.Timer
	noticeTimer clock.Timer
}

func NewEffectPlayer(clk clock.Clock, player audio.Player, notify func(Effects)) *EffectPlayer {
	if player == nil {
		player = audio.Nop{}
	}
	return &EffectPlayer{clk: clk, player: player, notify: notify}
}

// Effects returns the current transient state.
func (p *EffectPlayer) Effects() Effects {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effects
}

// PlaySound cues a named clip once. Fire-and-forget: the Player contract
// swallows playback failures, so nothing is surfaced here.
func (p *EffectPlayer) PlaySound(clip string) {
	p.player.Play(clip)
}

// Objection starts the shake and banner windows for username, superseding
// any still-running objection timers.
func (p *EffectPlayer) Objection(username string) {
	p.mu.Lock()
	p.effects.Shaking = true
	p.effects.Objector = username
	p.schedule(shakeDuration, &p.shakeTimer, func(e *Effects) { e.Shaking = false })
	p.schedule(bannerDuration, &p.bannerTimer, func(e *Effects) { e.Objector = "" })
	eff := p.effects
	p.mu.Unlock()
	p.emit(eff)
}

// PostNotice shows a short-lived message, replacing any current one.
func (p *EffectPlayer) PostNotice(message string) {
	p.mu.Lock()
	p.effects.Notice = message
	p.schedule(noticeDuration, &p.noticeTimer, func(e *Effects) { e.Notice = "" })
	eff := p.effects
	p.mu.Unlock()
	p.emit(eff)
}

// Stop cancels every pending expiry and clears the state, e.g. on session
// teardown.
func (p *EffectPlayer) Stop() {
	p.mu.Lock()
	for _, t := range []clock.Timer{p.shakeTimer, p.bannerTimer, p.noticeTimer} {
		if t != nil {
			t.Stop()
		}
	}
	p.shakeTimer, p.bannerTimer, p.noticeTimer = nil, nil, nil
	p.effects = Effects{}
	p.mu.Unlock()
}

// schedule arms slot with a fresh expiry, cancelling any previous one.
// The callback applies only if its timer is still the current occupant of
// slot — a stale timer that fired while being superseded is ignored.
// Caller holds p.mu.
func (p *EffectPlayer) schedule(d time.Duration, slot *clock.Timer, apply func(*Effects)) {
	if *slot != nil {
		(*slot).Stop()
	}
	var t clock.Timer
	t = p.clk.AfterFunc(d, func() {
		p.mu.Lock()
		if *slot != t {
			p.mu.Unlock()
			return
		}
		apply(&p.effects)
		*slot = nil
		eff := p.effects
		p.mu.Unlock()
		p.emit(eff)
	})
	*slot = t
}

func (p *EffectPlayer) emit(eff Effects) {
	if p.notify != nil {
		p.notify(eff)
	}
}
