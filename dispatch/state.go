package dispatch

import (
	"github.com/luca-patrignani/tec/consensus"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/message"
)

// Counters are the command interface counters. Both wrap at 256 like their
// telemetry fields and are only zeroed by RESET_COUNTERS.
type Counters struct {
	Command uint8
	Error   uint8
}

// State is everything a TEC node mutates while processing messages.
// It is owned by the single dispatch loop.
type State struct {
	Counters Counters
	Voting   consensus.State
	// Unit is the unit of the local samples and of the reported temperature.
	Unit sensor.Unit
	// Reserved counts received messages, modulo 256.
	Reserved uint8
}

// NewState returns the initial state of a node.
func NewState() *State {
	return &State{Unit: sensor.Celsius}
}

// Report builds the housekeeping telemetry of the node. Until the first
// voting round it carries the local reading.
func (s *State) Report() message.StatusReport {
	temperature := s.Voting.Value()
	if s.Voting.Outcome() == consensus.Uninitialized {
		temperature = s.Voting.Local().Value
	}
	return message.StatusReport{
		ErrorCounter:   s.Counters.Error,
		CommandCounter: s.Counters.Command,
		Reserved:       s.Reserved,
		Unit:           byte(s.Unit),
		Temperature:    temperature,
	}
}
