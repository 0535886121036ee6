// internal/court/ledger.go
package court

import (
	"sync"

	"github.com/nvelasco/karmacourt/internal/protocol"
)

// VoteLedger reconciles the locally remembered "I already voted" fact with
// the authoritative voter list. The list may lag a local click by one or
// more snapshot round trips, so either signal alone is enough to block a
// double vote; only an authoritative round reset clears the local one.
type VoteLedger struct {
	mu     sync.Mutex
	myVote string // "", protocol.VoteGuilty or protocol.VoteInnocent
}

// Record remembers a locally cast vote, optimistically and immediately,
// independent of server acknowledgement.
func (l *VoteLedger) Record(choice string) {
	l.mu.Lock()
	l.myVote = choice
	l.mu.Unlock()
}

// MyVote returns the locally remembered vote, empty if none.
func (l *VoteLedger) MyVote() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.myVote
}

// Reconcile applies an authoritative snapshot. An empty voter list marks a
// fresh round and clears the local vote; anything else leaves it alone.
func (l *VoteLedger) Reconcile(s protocol.Snapshot) {
	if len(s.Voters) != 0 {
		return
	}
	l.mu.Lock()
	l.myVote = ""
	l.mu.Unlock()
}

// CanVote reports whether userID may vote under snapshot s: someone must be
// on the dock, and neither the authoritative list nor the local ledger may
// already carry a vote.
func (l *VoteLedger) CanVote(s protocol.Snapshot, userID string) bool {
	if s.AccusedUnknown() {
		return false
	}
	if s.HasVoter(userID) {
		return false
	}
	return l.MyVote() == ""
}
