package ledger

import "github.com/luca-patrignani/tec/consensus"

// Entry is a single voting round in the log.
type Entry struct {
	Index     int             `json:"index"`
	Timestamp int64           `json:"timestamp"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	Round     consensus.Round `json:"round"`
	Metadata  Metadata        `json:"metadata"`
}

type Metadata struct {
	NodeID int               `json:"node_id"`
	Extra  map[string]string `json:"extra,omitempty"`
}
