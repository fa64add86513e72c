package ledger

import (
	"errors"
	"testing"

	"github.com/luca-patrignani/tec/consensus"
)

func round(value uint32) consensus.Round {
	return consensus.Round{
		Slot:    consensus.PeerA,
		Local:   value,
		PeerA:   value,
		Value:   value,
		Outcome: consensus.Agreement,
	}
}

func TestNewVoteLogIsEmpty(t *testing.T) {
	l := NewVoteLog(0, 4)
	if l.Len() != 0 {
		t.Fatalf("expected an empty log, got %d entries", l.Len())
	}
	if _, err := l.Latest(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("an empty log should verify: %v", err)
	}
}

func TestAppendChainsEntries(t *testing.T) {
	l := NewVoteLog(1, 8)
	for i := range 3 {
		if err := l.Append(round(uint32(20 + i))); err != nil {
			t.Fatalf("unexpected error appending round %d: %v", i, err)
		}
	}
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].PrevHash != genesisHash {
		t.Fatalf("first entry PrevHash should be %q, got %q", genesisHash, entries[0].PrevHash)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].PrevHash != entries[i-1].Hash {
			t.Fatalf("entry %d is not linked to its predecessor", i)
		}
		if entries[i].Index != i {
			t.Fatalf("expected index %d, got %d", i, entries[i].Index)
		}
	}
	latest, err := l.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Round.Value != 22 || latest.Metadata.NodeID != 1 {
		t.Fatalf("unexpected latest entry %+v", latest)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("valid log verification failed: %v", err)
	}
}

func TestAppendWithExtra(t *testing.T) {
	l := NewVoteLog(0, 0)
	if err := l.AppendWithExtra(round(7), map[string]string{"reason": "startup"}); err != nil {
		t.Fatal(err)
	}
	latest, _ := l.Latest()
	if latest.Metadata.Extra["reason"] != "startup" {
		t.Fatalf("expected extra reason 'startup', got %q", latest.Metadata.Extra["reason"])
	}
	if l.capacity != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, l.capacity)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	l := NewVoteLog(0, 3)
	for i := range 5 {
		if err := l.Append(round(uint32(i))); err != nil {
			t.Fatal(err)
		}
	}
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].Index != 2 || entries[0].Round.Value != 2 {
		t.Fatalf("expected the oldest retained entry to be index 2, got %+v", entries[0])
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("truncated log verification failed: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := map[string]func(l *VoteLog){
		"round value": func(l *VoteLog) { l.entries[1].Round.Value = 99 },
		"hash":        func(l *VoteLog) { l.entries[1].Hash = "tamperedhash" },
		"link":        func(l *VoteLog) { l.entries[2].PrevHash = "wronghash" },
		"genesis":     func(l *VoteLog) { l.entries[0].PrevHash = "invalid" },
		"index":       func(l *VoteLog) { l.entries[2].Index = 5 },
	}
	for name, tamper := range tests {
		l := NewVoteLog(0, 8)
		for i := range 3 {
			l.Append(round(uint32(i)))
		}
		tamper(l)
		if err := l.Verify(); err == nil {
			t.Fatalf("%s: expected tampering to be detected", name)
		}
	}
}

func TestVoterRecordsIntoLog(t *testing.T) {
	l := NewVoteLog(0, 8)
	v := consensus.NewVoter(nil, l)
	var st consensus.State
	v.SetLocal(&st, 10)
	v.UpdateVote(&st, consensus.PeerA, 50)
	v.UpdateVote(&st, consensus.PeerB, 50)

	if l.Len() != 1 {
		t.Fatalf("expected 1 recorded round once both peers reported, got %d", l.Len())
	}
	latest, _ := l.Latest()
	if latest.Round.Outcome != consensus.LocalOutvoted || latest.Round.Value != 50 {
		t.Fatalf("unexpected recorded round %+v", latest.Round)
	}
	if err := l.Verify(); err != nil {
		t.Fatal(err)
	}
}
