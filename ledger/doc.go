// Package ledger keeps a tamper evident audit log of voting rounds.
//
// # Core Components
//
// VoteLog: an append-only log of consensus.Round values with hash chaining.
// It implements consensus.Recorder, so a Voter can write to it directly.
//
// Entry: a single round together with its index, timestamp and the hash
// of the previous entry.
//
// # Capacity
//
// The log is bounded. Once full, the oldest entry is evicted on every
// append; Verify checks the chain from the first retained entry onwards.
package ledger
