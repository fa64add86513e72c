package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luca-patrignani/tec/consensus"
)

// DefaultCapacity is used when NewVoteLog is given a non positive capacity.
const DefaultCapacity = 1024

const genesisHash = "0"

var ErrEmpty = errors.New("vote log is empty")

// VoteLog records voting rounds of a node.
type VoteLog struct {
	mu       sync.RWMutex
	nodeID   int
	capacity int
	entries  []Entry
	now      func() time.Time
}

// NewVoteLog creates an empty log holding at most capacity entries.
func NewVoteLog(nodeID int, capacity int) *VoteLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &VoteLog{
		nodeID:   nodeID,
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
		now:      time.Now,
	}
}

// Append implements consensus.Recorder.
func (l *VoteLog) Append(round consensus.Round) error {
	return l.AppendWithExtra(round, nil)
}

// AppendWithExtra appends round with extra metadata attached to its entry.
func (l *VoteLog) AppendWithExtra(round consensus.Round, extra map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Index:     0,
		Timestamp: l.now().UnixNano(),
		PrevHash:  genesisHash,
		Round:     round,
		Metadata:  Metadata{NodeID: l.nodeID, Extra: extra},
	}
	if n := len(l.entries); n > 0 {
		latest := l.entries[n-1]
		entry.Index = latest.Index + 1
		entry.PrevHash = latest.Hash
	}
	hash, err := calculateHash(entry)
	if err != nil {
		return fmt.Errorf("hash entry %d: %w", entry.Index, err)
	}
	entry.Hash = hash

	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, entry)
	return nil
}

// Latest returns the most recent entry.
func (l *VoteLog) Latest() (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return Entry{}, ErrEmpty
	}
	return l.entries[len(l.entries)-1], nil
}

// Len returns the number of retained entries.
func (l *VoteLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the retained entries, oldest first.
func (l *VoteLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Verify checks the hash of every retained entry and the links between
// consecutive entries. An empty log is valid.
func (l *VoteLog) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, current := range l.entries {
		if i == 0 && current.Index == 0 && current.PrevHash != genesisHash {
			return fmt.Errorf("invalid first entry: prev hash %s", current.PrevHash)
		}
		expected, err := calculateHash(current)
		if err != nil {
			return err
		}
		if current.Hash != expected {
			return fmt.Errorf("entry %d: invalid hash: expected %s, got %s", current.Index, expected, current.Hash)
		}
		if i == 0 {
			continue
		}
		previous := l.entries[i-1]
		if current.Index != previous.Index+1 {
			return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
		}
		if current.PrevHash != previous.Hash {
			return fmt.Errorf("entry %d: invalid prev hash: expected %s, got %s", current.Index, previous.Hash, current.PrevHash)
		}
	}
	return nil
}

// calculateHash computes the SHA256 of an entry with its Hash field cleared.
func calculateHash(e Entry) (string, error) {
	e.Hash = ""
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
