// internal/court/store.go
//
// Store is the client's single point of truth for the shared courtroom
// session. The server is the only writer of truth: every `update` event
// replaces the snapshot wholesale, and all local state (crime draft, vote
// ledger, cooldown gates, transient effects) is a short-lived optimistic
// overlay that exists to mask latency and must converge back to the next
// snapshot.
package court

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvelasco/karmacourt/internal/audio"
	"github.com/nvelasco/karmacourt/internal/auth"
	"github.com/nvelasco/karmacourt/internal/clock"
	"github.com/nvelasco/karmacourt/internal/protocol"
)

// Sender dispatches an outbound command, fire-and-forget. Implementations
// must not block.
type Sender interface {
	Send(protocol.Command)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(protocol.Command)

func (f SenderFunc) Send(cmd protocol.Command) { f(cmd) }

// Subscription is a set of optional store notifications. Callbacks run
// synchronously on the goroutine that triggered the change and must return
// quickly.
type Subscription struct {
	// OnSnapshot fires after an authoritative snapshot replaces the
	// previous one. Deep-equal duplicates are suppressed.
	OnSnapshot func(protocol.Snapshot)
	// OnEffects fires whenever transient presentation state changes,
	// including self-expiry.
	OnEffects func(Effects)
}

// Config wires a Store together.
type Config struct {
	Log    *logrus.Logger
	Clock  clock.Clock
	Sender Sender
	Self   auth.Identity
	// Audio receives sound cues; nil means discard them.
	Audio audio.Player
}

// Store owns the authoritative snapshot plus every optimistic overlay, and
// is the only component allowed to mutate the snapshot (single writer, via
// inbound update events). Everything else reads it or holds short-lived
// derived copies.
type Store struct {
	log    *logrus.Logger
	sender Sender
	self   auth.Identity

	crime         *DraftField
	ledger        *VoteLedger
	evidenceGate  *Gate
	objectionGate *Gate
	effects       *EffectPlayer

	mu       sync.Mutex
	snapshot protocol.Snapshot
	hasSnap  bool
	subs     []Subscription
}

func NewStore(cfg Config) *Store {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	s := &Store{
		log:           cfg.Log,
		sender:        cfg.Sender,
		self:          cfg.Self,
		ledger:        &VoteLedger{},
		evidenceGate:  NewGate(cfg.Clock),
		objectionGate: NewGate(cfg.Clock),
	}
	s.crime = NewDraftField(cfg.Clock, func(v string) {
		s.send(protocol.UpdateCrimeCommand(v))
	})
	s.effects = NewEffectPlayer(cfg.Clock, cfg.Audio, s.notifyEffects)
	return s
}

// Subscribe registers notifications. Subscribers cannot unsubscribe; the
// store's lifetime is the session's.
func (s *Store) Subscribe(sub Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// HandleEvent routes one inbound event: updates replace the snapshot,
// transient events bypass it entirely.
func (s *Store) HandleEvent(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.UpdateEvent:
		s.applySnapshot(ev.Snapshot)
	case protocol.SoundEvent:
		s.effects.PlaySound(ev.Sound)
	case protocol.ObjectionEvent:
		s.effects.Objection(ev.Username)
	case protocol.ErrorEvent:
		s.log.Warnf("court: server error: %s", ev.Message)
		s.effects.PostNotice(ev.Message)
	default:
		s.log.Warnf("court: ignoring unhandled event %T", ev)
	}
}

func (s *Store) applySnapshot(snap protocol.Snapshot) {
	s.mu.Lock()
	if s.hasSnap && reflect.DeepEqual(s.snapshot, snap) {
		s.mu.Unlock()
		return
	}
	s.snapshot = snap
	s.hasSnap = true
	subs := append([]Subscription(nil), s.subs...)
	s.mu.Unlock()

	s.crime.SetAuthoritative(snap.Crime)
	s.ledger.Reconcile(snap)

	for _, sub := range subs {
		if sub.OnSnapshot != nil {
			sub.OnSnapshot(snap)
		}
	}
}

func (s *Store) notifyEffects(eff Effects) {
	s.mu.Lock()
	subs := append([]Subscription(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.OnEffects != nil {
			sub.OnEffects(eff)
		}
	}
}

// Snapshot returns the current authoritative state.
func (s *Store) Snapshot() protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Effects returns the current transient presentation state.
func (s *Store) Effects() Effects {
	return s.effects.Effects()
}

// CrimeDraft returns the accusation text an editor should render: the
// local draft, which mirrors the snapshot whenever no edit is in flight.
func (s *Store) CrimeDraft() string {
	return s.crime.Value()
}

// IsJudge reports whether the local user currently holds the gavel.
func (s *Store) IsJudge() bool {
	snap := s.Snapshot()
	return snap.JudgeID != "" && snap.JudgeID == s.self.UserID
}

// IsUnknownAccused reports whether the dock is empty.
func (s *Store) IsUnknownAccused() bool {
	return s.Snapshot().AccusedUnknown()
}

// IsExecutionDisabled reports whether calling the verdict is blocked:
// nobody on the dock, or no accusation on file. Independent of verdict and
// timer state.
func (s *Store) IsExecutionDisabled() bool {
	snap := s.Snapshot()
	return snap.AccusedUnknown() || snap.CrimeEmpty()
}

// CanVote reports whether the local user may vote right now.
func (s *Store) CanVote() bool {
	return s.ledger.CanVote(s.Snapshot(), s.self.UserID)
}

// MyVote returns the locally remembered vote for this round, empty if none.
func (s *Store) MyVote() string {
	return s.ledger.MyVote()
}

// Vote casts a guilty/innocent vote: the ledger records it optimistically
// so CanVote flips false immediately, then the command goes out.
func (s *Store) Vote(choice string) {
	if choice != protocol.VoteGuilty && choice != protocol.VoteInnocent {
		s.log.Warnf("court: ignoring invalid vote %q", choice)
		return
	}
	if !s.CanVote() {
		return
	}
	s.ledger.Record(choice)
	s.send(protocol.VoteCommand(choice))
}

// SetCrimeInput feeds one keystroke of the Judge's accusation editing into
// the debounced draft. No-op for non-judges.
func (s *Store) SetCrimeInput(text string) {
	if !s.IsJudge() {
		return
	}
	s.crime.Input(text)
}

// GenerateCrime asks the server for a random accusation. Judge only.
func (s *Store) GenerateCrime() {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.GenerateCrimeCommand())
}

// CallVerdict closes voting. With the dock or accusation missing it posts a
// local notice instead of dispatching; the server would refuse anyway.
func (s *Store) CallVerdict() {
	if !s.IsJudge() {
		return
	}
	if s.IsExecutionDisabled() {
		s.effects.PostNotice("PROTOCOL HALTED. DEFENDANT OR ACCUSATION MISSING.")
		return
	}
	s.send(protocol.CallVerdictCommand())
}

// PassSentence draws a punishment after a guilty verdict. Judge only.
func (s *Store) PassSentence() {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.PassSentenceCommand())
}

// NextCase advances to the next round. Judge only. Local vote and draft
// state reconcile via the reset snapshot that follows.
func (s *Store) NextCase() {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.NextCaseCommand())
}

// AccuseUser puts a participant on the dock. Judge only.
func (s *Store) AccuseUser(user protocol.Participant) {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.AccuseUserCommand(user))
}

// CallWitness calls a participant to the stand. Judge only.
func (s *Store) CallWitness(user protocol.Participant) {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.CallWitnessCommand(user))
}

// SubmitEvidence submits an evidence card under the local user's name,
// gated by the evidence cooldown. A blocked or empty submission is a no-op.
func (s *Store) SubmitEvidence(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !s.evidenceGate.Allowed() {
		return
	}
	s.evidenceGate.Activate(evidenceCooldown)
	s.send(protocol.AddEvidenceCommand(text, s.self.Username))
}

// DeleteEvidence removes an evidence card. Judge only.
func (s *Store) DeleteEvidence(id int) {
	if !s.IsJudge() {
		return
	}
	s.send(protocol.DeleteEvidenceCommand(id))
}

// Objection yells OBJECTION, gated by the objection cooldown.
func (s *Store) Objection() {
	if !s.objectionGate.Allowed() {
		return
	}
	s.objectionGate.Activate(objectionCooldown)
	s.send(protocol.ObjectionCommand(s.self.Username))
}

// EvidenceCooldownRemaining reports time left on the evidence gate, for a
// draining UI indicator. Zero means unlocked.
func (s *Store) EvidenceCooldownRemaining() time.Duration {
	return s.evidenceGate.Remaining()
}

// ObjectionCooldownRemaining reports time left on the objection gate.
func (s *Store) ObjectionCooldownRemaining() time.Duration {
	return s.objectionGate.Remaining()
}

// Close releases every pending timer. Further events are not expected; the
// session channel must already be closed or closing.
func (s *Store) Close() {
	s.crime.Stop()
	s.effects.Stop()
}

func (s *Store) send(cmd protocol.Command) {
	if s.sender == nil {
		s.log.Warnf("court: no sender wired, dropping %q command", cmd.Type)
		return
	}
	s.sender.Send(cmd)
}
