// internal/protocol/commands.go
package protocol

// Vote choices accepted by the server.
const (
	VoteGuilty   = "guilty"
	VoteInnocent = "innocent"
)

// Command is an outbound client action. Commands are fire-and-forget: the
// server acknowledges nothing on this channel, the next snapshot broadcast
// is the only confirmation. Use the constructors below so every command
// carries exactly the fields its type expects.
type Command struct {
	Type     string       `json:"type"`
	Vote     string       `json:"vote,omitempty"`
	Crime    *string      `json:"crime,omitempty"`
	User     *Participant `json:"user,omitempty"`
	Text     string       `json:"text,omitempty"`
	Username string       `json:"username,omitempty"`
	ID       int          `json:"id,omitempty"`
}

// VoteCommand casts a guilty/innocent vote for the current round.
func VoteCommand(choice string) Command {
	return Command{Type: "vote", Vote: choice}
}

// UpdateCrimeCommand replaces the accusation text. Judge only. The crime
// field is a pointer so clearing the accusation still serializes "".
func UpdateCrimeCommand(crime string) Command {
	return Command{Type: "update_crime", Crime: &crime}
}

// GenerateCrimeCommand asks the server to draw a random accusation. Judge only.
func GenerateCrimeCommand() Command {
	return Command{Type: "generate_crime"}
}

// CallVerdictCommand closes voting and rules on the tally. Judge only.
func CallVerdictCommand() Command {
	return Command{Type: "call_verdict"}
}

// PassSentenceCommand draws a punishment after a guilty verdict. Judge only.
func PassSentenceCommand() Command {
	return Command{Type: "pass_sentence"}
}

// NextCaseCommand resets the round. Judge only.
func NextCaseCommand() Command {
	return Command{Type: "next_case"}
}

// AccuseUserCommand puts a participant on the dock. Judge only.
func AccuseUserCommand(user Participant) Command {
	return Command{Type: "accuse_user", User: &user}
}

// CallWitnessCommand calls a participant to the stand. Judge only.
func CallWitnessCommand(user Participant) Command {
	return Command{Type: "call_witness", User: &user}
}

// AddEvidenceCommand submits an evidence card under the author's name.
func AddEvidenceCommand(text, username string) Command {
	return Command{Type: "add_evidence", Text: text, Username: username}
}

// DeleteEvidenceCommand removes an evidence card by id. Judge only.
func DeleteEvidenceCommand(id int) Command {
	return Command{Type: "delete_evidence", ID: id}
}

// ObjectionCommand yells OBJECTION on behalf of username.
func ObjectionCommand(username string) Command {
	return Command{Type: "objection", Username: username}
}
