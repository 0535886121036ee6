// internal/court/store_test.go
package court

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/karmacourt/internal/auth"
	"github.com/nvelasco/karmacourt/internal/clock"
	"github.com/nvelasco/karmacourt/internal/protocol"
)

// recordingSender collects dispatched commands instead of writing them to a
// websocket.
type recordingSender struct {
	mu   sync.Mutex
	cmds []protocol.Command
}

func (r *recordingSender) Send(cmd protocol.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recordingSender) all() []protocol.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Command(nil), r.cmds...)
}

func (r *recordingSender) ofType(typ string) []protocol.Command {
	var out []protocol.Command
	for _, c := range r.all() {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *recordingSender, *clock.FakeClock) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	clk := clock.NewFake()
	sender := &recordingSender{}
	s := NewStore(Config{
		Log:    logger,
		Clock:  clk,
		Sender: sender,
		Self:   auth.Identity{UserID: localUser, Username: "me"},
	})
	t.Cleanup(s.Close)
	return s, sender, clk
}

func lobbySnapshot() protocol.Snapshot {
	return protocol.Snapshot{
		Accused: protocol.Participant{Username: protocol.UnknownAccused},
		Voters:  []string{},
		JudgeID: "judge-1",
	}
}

func applyUpdate(s *Store, snap protocol.Snapshot) {
	s.HandleEvent(protocol.UpdateEvent{Snapshot: snap})
}

func TestSnapshotReplacedWholesale(t *testing.T) {
	s, _, _ := newTestStore(t)

	first := lobbySnapshot()
	first.Evidence = []protocol.Evidence{{ID: 1, Text: "screenshot", Author: "bob"}}
	first.Crime = "jaywalking"
	applyUpdate(s, first)

	second := lobbySnapshot()
	applyUpdate(s, second)

	got := s.Snapshot()
	assert.Empty(t, got.Evidence, "no field-level carry-over between snapshots")
	assert.Empty(t, got.Crime)
}

func TestDuplicateSnapshotsAreNoOps(t *testing.T) {
	s, _, _ := newTestStore(t)

	var notified int
	s.Subscribe(Subscription{OnSnapshot: func(protocol.Snapshot) { notified++ }})

	snap := lobbySnapshot()
	applyUpdate(s, snap)
	applyUpdate(s, snap)
	applyUpdate(s, snap)
	assert.Equal(t, 1, notified)

	snap.Timer = 59
	applyUpdate(s, snap)
	assert.Equal(t, 2, notified)
}

// TestRoundLifecycle walks the scenario from accusation through next_case.
func TestRoundLifecycle(t *testing.T) {
	s, sender, _ := newTestStore(t)

	// Empty dock: nobody can vote.
	applyUpdate(s, lobbySnapshot())
	assert.False(t, s.CanVote())

	// Judge accuses alice: voting opens for non-judges.
	accused := lobbySnapshot()
	accused.Accused = protocol.Participant{ID: "111", Username: "alice"}
	accused.Crime = "Posting cringe in #general"
	applyUpdate(s, accused)
	assert.True(t, s.CanVote())

	// Local guilty vote: blocked immediately, before any snapshot.
	s.Vote(protocol.VoteGuilty)
	assert.Equal(t, protocol.VoteGuilty, s.MyVote())
	assert.False(t, s.CanVote())
	require.Len(t, sender.ofType("vote"), 1)

	// Double click in the lag window: no second command.
	s.Vote(protocol.VoteGuilty)
	s.Vote(protocol.VoteInnocent)
	assert.Len(t, sender.ofType("vote"), 1)

	// Server confirms the vote; still blocked.
	confirmed := accused
	confirmed.Voters = []string{localUser}
	confirmed.Votes = protocol.VoteCount{Guilty: 1}
	applyUpdate(s, confirmed)
	assert.False(t, s.CanVote())

	// next_case resets the round: vote clears, dock empty blocks voting.
	applyUpdate(s, lobbySnapshot())
	assert.Empty(t, s.MyVote())
	assert.False(t, s.CanVote(), "empty dock blocks voting after reset")
}

func TestVoteRejectsInvalidChoice(t *testing.T) {
	s, sender, _ := newTestStore(t)
	accused := lobbySnapshot()
	accused.Accused = protocol.Participant{ID: "111", Username: "alice"}
	applyUpdate(s, accused)

	s.Vote("abstain")
	assert.Empty(t, sender.all())
}

func judgeSnapshot() protocol.Snapshot {
	snap := lobbySnapshot()
	snap.JudgeID = localUser
	return snap
}

func TestExecutionGating(t *testing.T) {
	s, sender, _ := newTestStore(t)

	// Accused present but accusation blank.
	snap := judgeSnapshot()
	snap.Accused = protocol.Participant{ID: "111", Username: "alice"}
	snap.Crime = "   "
	applyUpdate(s, snap)
	assert.True(t, s.IsExecutionDisabled())

	s.CallVerdict()
	assert.Empty(t, sender.ofType("call_verdict"))
	assert.NotEmpty(t, s.Effects().Notice, "blocked verdict posts a local notice")

	// Accusation on file: verdict goes out.
	snap.Crime = "Posting cringe in #general"
	applyUpdate(s, snap)
	assert.False(t, s.IsExecutionDisabled())

	s.CallVerdict()
	assert.Len(t, sender.ofType("call_verdict"), 1)
}

func TestJudgeOnlyCommandsAreGated(t *testing.T) {
	s, sender, _ := newTestStore(t)

	// Somebody else holds the gavel.
	snap := lobbySnapshot()
	snap.Crime = "jaywalking"
	snap.Accused = protocol.Participant{ID: "111", Username: "alice"}
	applyUpdate(s, snap)
	assert.False(t, s.IsJudge())

	s.GenerateCrime()
	s.CallVerdict()
	s.PassSentence()
	s.NextCase()
	s.AccuseUser(protocol.Participant{ID: "222", Username: "bob"})
	s.CallWitness(protocol.Participant{ID: "222", Username: "bob"})
	s.DeleteEvidence(1)
	s.SetCrimeInput("hijacked")
	assert.Empty(t, sender.all(), "non-judges dispatch no judge commands")

	// Now the local user is the Judge.
	snap.JudgeID = localUser
	applyUpdate(s, snap)
	require.True(t, s.IsJudge())

	s.GenerateCrime()
	s.PassSentence()
	s.NextCase()
	s.AccuseUser(protocol.Participant{ID: "222", Username: "bob"})
	s.CallWitness(protocol.Participant{ID: "333", Username: "carol"})
	s.DeleteEvidence(7)

	types := make([]string, 0, len(sender.all()))
	for _, c := range sender.all() {
		types = append(types, c.Type)
	}
	assert.Equal(t, []string{"generate_crime", "pass_sentence", "next_case", "accuse_user", "call_witness", "delete_evidence"}, types)
}

func TestCrimeDebounceThroughStore(t *testing.T) {
	s, sender, clk := newTestStore(t)
	applyUpdate(s, judgeSnapshot())

	for i, v := range []string{"s", "st", "ste", "stealing cookies"} {
		if i > 0 {
			clk.Advance(50 * time.Millisecond)
		}
		s.SetCrimeInput(v)
	}
	assert.Equal(t, "stealing cookies", s.CrimeDraft())
	assert.Empty(t, sender.ofType("update_crime"))

	clk.Advance(500 * time.Millisecond)
	cmds := sender.ofType("update_crime")
	require.Len(t, cmds, 1)
	require.NotNil(t, cmds[0].Crime)
	assert.Equal(t, "stealing cookies", *cmds[0].Crime)
}

func TestCrimeDraftSurvivesEchoSnapshot(t *testing.T) {
	s, _, clk := newTestStore(t)
	snap := judgeSnapshot()
	snap.Crime = "old crime"
	applyUpdate(s, snap)

	s.SetCrimeInput("rewriting the charge")

	// The judge's own earlier update round-trips back mid-edit.
	echo := snap
	echo.Timer = 41
	applyUpdate(s, echo)
	assert.Equal(t, "rewriting the charge", s.CrimeDraft())

	clk.Advance(500 * time.Millisecond)

	// After the flush, snapshots mirror into the draft again.
	final := snap
	final.Crime = "rewriting the charge"
	applyUpdate(s, final)
	assert.Equal(t, "rewriting the charge", s.CrimeDraft())
}

func TestEvidenceCooldownGating(t *testing.T) {
	s, sender, clk := newTestStore(t)
	applyUpdate(s, lobbySnapshot())

	s.SubmitEvidence("the screenshots")
	require.Len(t, sender.ofType("add_evidence"), 1)
	assert.Equal(t, 3*time.Second, s.EvidenceCooldownRemaining())

	// Within cooldown: no command, no state change.
	s.SubmitEvidence("more screenshots")
	assert.Len(t, sender.ofType("add_evidence"), 1)
	assert.Equal(t, 3*time.Second, s.EvidenceCooldownRemaining())

	clk.Advance(3 * time.Second)
	s.SubmitEvidence("more screenshots")
	cmds := sender.ofType("add_evidence")
	require.Len(t, cmds, 2)
	assert.Equal(t, "more screenshots", cmds[1].Text)
	assert.Equal(t, "me", cmds[1].Username, "evidence carries the author's name")
}

func TestEmptyEvidenceIgnored(t *testing.T) {
	s, sender, _ := newTestStore(t)
	s.SubmitEvidence("   ")
	assert.Empty(t, sender.all())
	assert.Zero(t, s.EvidenceCooldownRemaining(), "rejected submission does not arm the gate")
}

func TestObjectionCooldownGating(t *testing.T) {
	s, sender, clk := newTestStore(t)

	s.Objection()
	require.Len(t, sender.ofType("objection"), 1)
	assert.Equal(t, "me", sender.ofType("objection")[0].Username)
	assert.Equal(t, 10*time.Second, s.ObjectionCooldownRemaining())

	s.Objection()
	assert.Len(t, sender.ofType("objection"), 1)

	clk.Advance(10 * time.Second)
	s.Objection()
	assert.Len(t, sender.ofType("objection"), 2)
}

func TestTransientEventsBypassSnapshot(t *testing.T) {
	s, _, _ := newTestStore(t)
	applyUpdate(s, lobbySnapshot())
	before := s.Snapshot()

	s.HandleEvent(protocol.ObjectionEvent{UserID: "222", Username: "bob"})
	s.HandleEvent(protocol.ErrorEvent{Message: "Evidence rejected: Inappropriate content."})

	eff := s.Effects()
	assert.True(t, eff.Shaking)
	assert.Equal(t, "bob", eff.Objector)
	assert.Equal(t, "Evidence rejected: Inappropriate content.", eff.Notice)
	assert.Equal(t, before, s.Snapshot(), "transient events never touch the snapshot")
}

func TestSoundEventsReachThePlayer(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	clk := clock.NewFake()
	rec := &clipRecorder{}
	s := NewStore(Config{
		Log:    logger,
		Clock:  clk,
		Sender: &recordingSender{},
		Self:   auth.Identity{UserID: localUser, Username: "me"},
		Audio:  rec,
	})
	defer s.Close()

	s.HandleEvent(protocol.SoundEvent{Sound: protocol.SoundGavel})
	assert.Equal(t, []string{protocol.SoundGavel}, rec.clips)
}

func TestEffectsSubscription(t *testing.T) {
	s, _, clk := newTestStore(t)

	var mu sync.Mutex
	var seen []Effects
	s.Subscribe(Subscription{OnEffects: func(e Effects) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	}})

	s.HandleEvent(protocol.ObjectionEvent{Username: "bob"})
	clk.Advance(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, Effects{Shaking: true, Objector: "bob"}, seen[0])
	assert.Equal(t, Effects{}, seen[2])
}

func TestCloseReleasesTimers(t *testing.T) {
	s, sender, clk := newTestStore(t)
	applyUpdate(s, judgeSnapshot())

	s.SetCrimeInput("never sent")
	s.HandleEvent(protocol.ObjectionEvent{Username: "bob"})
	s.Close()

	clk.Advance(time.Minute)
	assert.Empty(t, sender.ofType("update_crime"), "close cancels the pending debounce flush")
	assert.Equal(t, Effects{}, s.Effects())
}
