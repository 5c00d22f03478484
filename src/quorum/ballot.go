package quorum

// Ballot is one Organization's vote in a distributed validation.
type Ballot uint8

const (
	// Pending means the vote had not arrived when the outcome was decided.
	Pending Ballot = iota
	// Approve is an affirmative vote.
	Approve
	// Deny is a negative vote, including errors and timeouts.
	Deny
)

var ballots = []string{"Pending", "Approve", "Deny"}

func (b Ballot) String() string {
	if int(b) >= len(ballots) {
		return "Ballot(?)"
	}
	return ballots[b]
}

func ballot(ok bool) Ballot {
	if ok {
		return Approve
	}
	return Deny
}
