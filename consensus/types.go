package consensus

import "fmt"

// Source tags the origin of a Reading.
type Source int

const (
	SourceLocal Source = iota
	SourcePeerA
	SourcePeerB
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "LOCAL"
	case SourcePeerA:
		return "PEER_A"
	case SourcePeerB:
		return "PEER_B"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Slot indexes the peer readings of a State.
type Slot int

const (
	PeerA Slot = iota
	PeerB

	peerSlots = 2
)

// Valid reports whether s addresses a peer slot.
func (s Slot) Valid() bool {
	return s == PeerA || s == PeerB
}

// Source returns the reading source stored in s.
func (s Slot) Source() Source {
	if s == PeerB {
		return SourcePeerB
	}
	return SourcePeerA
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return s.Source().String()
}

// Reading is the latest sample received from a source.
type Reading struct {
	Source Source
	Value  uint32
}

// Outcome classifies a voting round.
type Outcome int

const (
	Uninitialized Outcome = iota
	Agreement
	LocalOutvoted
	NoMajority
)

func (o Outcome) String() string {
	switch o {
	case Uninitialized:
		return "UNINITIALIZED"
	case Agreement:
		return "AGREEMENT"
	case LocalOutvoted:
		return "LOCAL_OUTVOTED"
	case NoMajority:
		return "NO_MAJORITY"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// State is the voting state of one node. The zero value is ready to use:
// every reading is zero and the outcome is Uninitialized until both peers
// have reported.
//
// Only a Voter mutates a State.
type State struct {
	local     Reading
	peers     [peerSlots]Reading
	set       [peerSlots]bool
	value     uint32
	outcome   Outcome
	stale     bool
	lostVotes uint32
}

// Local returns the local reading.
func (s *State) Local() Reading {
	return s.local
}

// Peer returns the latest reading stored in slot.
func (s *State) Peer(slot Slot) Reading {
	if !slot.Valid() {
		return Reading{Source: slot.Source()}
	}
	r := s.peers[slot]
	r.Source = slot.Source()
	return r
}

// Reported tells whether the peer in slot has sent at least one reading.
func (s *State) Reported(slot Slot) bool {
	return slot.Valid() && s.set[slot]
}

// Complete reports whether both peers have sent a reading.
func (s *State) Complete() bool {
	return s.set[PeerA] && s.set[PeerB]
}

// LostVotes counts the rounds in which the local reading was outvoted.
func (s *State) LostVotes() uint32 {
	return s.lostVotes
}

// Value returns the authoritative temperature.
func (s *State) Value() uint32 {
	return s.value
}

// Outcome returns the outcome of the latest round.
func (s *State) Outcome() Outcome {
	return s.outcome
}

// Stale reports whether Value was carried over from an earlier round
// because the latest round found no majority.
func (s *State) Stale() bool {
	return s.stale
}

// Round is the record of a single voting round.
type Round struct {
	Slot    Slot    `json:"slot"`
	Local   uint32  `json:"local"`
	PeerA   uint32  `json:"peer_a"`
	PeerB   uint32  `json:"peer_b"`
	Value   uint32  `json:"value"`
	Outcome Outcome `json:"outcome"`
}
