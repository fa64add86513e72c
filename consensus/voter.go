package consensus

import (
	"log/slog"

	"github.com/luca-patrignani/tec/events"
)

// Voter runs the majority vote on a State passed by the caller.
type Voter struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewVoter creates a Voter reporting to logger. recorder may be nil.
func NewVoter(logger *slog.Logger, recorder Recorder) *Voter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voter{logger: logger, recorder: recorder}
}

// SetLocal replaces the local reading. It does not start a round: the
// authoritative value only changes when a peer reading arrives.
func (v *Voter) SetLocal(st *State, value uint32) {
	st.local = Reading{Source: SourceLocal, Value: value}
}

// UpdateVote stores the reading of the peer in slot and recomputes the
// authoritative value of st. No round is held until both peers have
// reported at least once: until then the outcome stays Uninitialized.
//
// When all three readings differ the previous value is kept and the state
// is marked stale. Repeating a call with the same slot and value yields the
// same outcome and value.
func (v *Voter) UpdateVote(st *State, slot Slot, value uint32) Outcome {
	if !slot.Valid() {
		v.logger.Error("vote on unknown peer slot", events.Attr(events.VoteErr), "slot", int(slot))
		return st.outcome
	}
	st.peers[slot] = Reading{Source: slot.Source(), Value: value}
	st.set[slot] = true
	if !st.Complete() {
		v.logger.Debug("waiting for the other peer before voting", "slot", slot.String(), "value", value)
		return st.outcome
	}

	local := st.local.Value
	a, b := st.peers[PeerA].Value, st.peers[PeerB].Value
	switch {
	case local == a || local == b:
		st.value = local
		st.outcome = Agreement
		st.stale = false
		v.logger.Debug("voted temperature", events.Attr(events.ValueInf), "value", st.value)
	case a == b:
		st.value = a
		st.outcome = LocalOutvoted
		st.stale = false
		st.lostVotes++
		v.logger.Error("local temperature lost the vote",
			events.Attr(events.VoteErr), "local", local, "value", st.value, "lost_votes", st.lostVotes)
	default:
		st.outcome = NoMajority
		st.stale = true
		v.logger.Error("no majority among temperatures, keeping previous value",
			events.Attr(events.VoteErr), "local", local, "peer_a", a, "peer_b", b, "value", st.value)
	}

	if v.recorder != nil {
		round := Round{
			Slot:    slot,
			Local:   local,
			PeerA:   a,
			PeerB:   b,
			Value:   st.value,
			Outcome: st.outcome,
		}
		if err := v.recorder.Append(round); err != nil {
			v.logger.Error("failed to record voting round", "error", err)
		}
	}
	return st.outcome
}
