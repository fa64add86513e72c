package consensus

// Recorder keeps the history of voting rounds.
// Implementations must not retain references to the Round after returning.
type Recorder interface {
	// Append stores a completed round. An error is logged by the voter and
	// never changes the outcome of the round.
	Append(round Round) error
}
