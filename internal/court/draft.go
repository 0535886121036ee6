// internal/court/draft.go
package court

import (
	"sync"
	"time"

	"github.com/nvelasco/karmacourt/internal/clock"
)

// crimeDebounce is the quiet period after the last keystroke before the
// accusation draft is flushed as an update_crime command.
const crimeDebounce = 500 * time.Millisecond

// DraftField keeps a locally editable mirror of a server-owned text field.
// Keystrokes land in the draft immediately so the editor never lags, and
// the value is flushed outward only once input has been quiet for the
// debounce interval; each keystroke cancels and restarts the pending timer,
// so a burst of typing produces exactly one flush carrying the final value.
//
// Conflict policy: while an edit is pending, authoritative values are
// ignored rather than applied — mirroring them would clobber in-flight
// keystrokes when the editor's own earlier flush round-trips back. The
// flushed edit is always the newer write, and the server's echo snapshot
// re-mirrors truth right after the flush.
type DraftField struct {
	clk   clock.Clock
	flush func(string)

	mu      sync.Mutex
	value   string
	pending bool
	timer   clock.Timer
}

func NewDraftField(clk clock.Clock, flush func(string)) *DraftField {
	return &DraftField{clk: clk, flush: flush}
}

// Value returns the current draft, which is what an editor renders.
func (f *DraftField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// SetAuthoritative mirrors a snapshot value into the draft unless an edit
// is pending (see the conflict policy above).
func (f *DraftField) SetAuthoritative(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return
	}
	f.value = v
}

// Input applies one keystroke's worth of local edit and (re)arms the
// debounce timer.
func (f *DraftField) Input(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	f.pending = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = f.clk.AfterFunc(crimeDebounce, f.fire)
}

func (f *DraftField) fire() {
	f.mu.Lock()
	if !f.pending {
		f.mu.Unlock()
		return
	}
	v := f.value
	f.pending = false
	f.timer = nil
	f.mu.Unlock()

	// No retry on send failure; the next keystroke or snapshot recovers.
	f.flush(v)
}

// Stop cancels any pending flush, e.g. on session teardown.
func (f *DraftField) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.pending = false
}
