// internal/cli/repl.go
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nvelasco/karmacourt/internal/court"
	"github.com/nvelasco/karmacourt/internal/protocol"
)

// readLines feeds stdin lines to a channel, closed on EOF. Reads are not
// cancellable mid-line; the context only stops delivery.
func readLines(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

const promptHelp = `commands:
  vote guilty|innocent     cast your vote
  crime <text>             set the accusation (judge)
  generate                 random accusation (judge)
  accuse <username>        put someone on the dock (judge)
  witness <username>       call someone to the stand (judge)
  verdict                  close voting (judge)
  sentence                 draw a punishment (judge)
  next                     next case (judge)
  evidence <text>          submit an evidence card
  delete <id>              remove an evidence card (judge)
  objection                OBJECTION!
  status                   show the current round
  help                     this text
  quit                     leave the courtroom`

// dispatch executes one prompt line against the store. Returns true when the
// user asked to quit.
func dispatch(line string, store *court.Store, people []protocol.Participant, p *printer) bool {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
	case "quit", "exit":
		return true
	case "help":
		p.println(promptHelp)
	case "vote":
		store.Vote(strings.ToLower(rest))
	case "crime":
		store.SetCrimeInput(rest)
	case "generate":
		store.GenerateCrime()
	case "accuse":
		store.AccuseUser(findParticipant(people, rest))
	case "witness":
		store.CallWitness(findParticipant(people, rest))
	case "verdict":
		store.CallVerdict()
	case "sentence":
		store.PassSentence()
	case "next":
		store.NextCase()
	case "evidence":
		store.SubmitEvidence(rest)
		if remaining := store.EvidenceCooldownRemaining(); remaining > 0 {
			p.println(fmt.Sprintf("evidence cooldown: %s", remaining))
		}
	case "delete":
		id, err := strconv.Atoi(rest)
		if err != nil {
			p.println("delete takes a numeric evidence id")
			return false
		}
		store.DeleteEvidence(id)
	case "objection":
		store.Objection()
		if remaining := store.ObjectionCooldownRemaining(); remaining > 0 {
			p.println(fmt.Sprintf("objection cooldown: %s", remaining))
		}
	case "status":
		p.status(store)
	default:
		p.println(fmt.Sprintf("unknown command %q, try help", verb))
	}
	return false
}

// findParticipant resolves a name against the roster, falling back to a
// bare username the server can match itself.
func findParticipant(people []protocol.Participant, name string) protocol.Participant {
	for _, p := range people {
		if strings.EqualFold(p.Username, name) || p.ID == name {
			return p
		}
	}
	return protocol.Participant{Username: name}
}

// printer renders courtroom state to the terminal. The court record is
// append-only, so only lines beyond the last printed index are emitted.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

func (p *printer) snapshot(s protocol.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s.Logs) < p.printed {
		// Server restarted its record; start over.
		p.printed = 0
	}
	for _, entry := range s.Logs[p.printed:] {
		fmt.Fprintf(p.w, "[%s] %s\n", entry.Category, entry.Message)
	}
	p.printed = len(s.Logs)
}

func (p *printer) effects(e court.Effects) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Objector != "" {
		fmt.Fprintf(p.w, "*** OBJECTION! — %s ***\n", e.Objector)
	}
	if e.Notice != "" {
		fmt.Fprintf(p.w, "!! %s\n", e.Notice)
	}
}

func (p *printer) status(store *court.Store) {
	s := store.Snapshot()
	var b strings.Builder

	accused := s.Accused.Username
	if s.AccusedUnknown() {
		accused = "(nobody on the dock)"
	}
	fmt.Fprintf(&b, "accused:  %s\n", accused)
	fmt.Fprintf(&b, "crime:    %s\n", store.CrimeDraft())
	if s.Witness.Username != "" {
		fmt.Fprintf(&b, "witness:  %s\n", s.Witness.Username)
	}
	fmt.Fprintf(&b, "votes:    %d guilty / %d innocent\n", s.Votes.Guilty, s.Votes.Innocent)
	if s.Verdict != "" {
		fmt.Fprintf(&b, "verdict:  %s\n", s.Verdict)
	}
	if s.Sentence != "" {
		fmt.Fprintf(&b, "sentence: %s\n", s.Sentence)
	}
	if s.Timer > 0 {
		fmt.Fprintf(&b, "timer:    %ds\n", s.Timer)
	}
	for _, ev := range s.Evidence {
		fmt.Fprintf(&b, "exhibit %d (%s): %s\n", ev.ID, ev.Author, ev.Text)
	}
	switch {
	case store.IsJudge():
		b.WriteString("you hold the gavel\n")
	case store.MyVote() != "":
		fmt.Fprintf(&b, "you voted %s\n", store.MyVote())
	case store.CanVote():
		b.WriteString("voting is open\n")
	}
	p.println(strings.TrimRight(b.String(), "\n"))
}
