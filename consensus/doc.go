// Package consensus fuses the temperature measured by this node with the
// readings published by its two peers into a single authoritative value.
//
// # Core Components
//
// State: the reading store of a node. It holds the latest local reading,
// the latest reading of each peer and the last voted value.
//
// Voter: applies the 2-of-3 majority rule every time a peer reading
// arrives and reports the outcome.
//
// Recorder: optional sink for the history of voting rounds.
//
// # Voting Rule
//
// No round is held before both peers have reported once. After that, on
// each peer update the voter compares the three readings:
//  1. If the local reading equals either peer, the local reading wins (Agreement)
//  2. Otherwise, if the peers agree, their value wins (LocalOutvoted) and
//     the lost vote counter is incremented
//  3. Otherwise no value is safe and the previous one is kept (NoMajority)
//
// Each node votes on its own copy of the readings. Agreement between nodes
// is obtained only through the readings they exchange, never through shared
// memory.
//
// Peer values are not range checked: an out-of-range value agreed by both
// peers still outvotes the local reading.
package consensus
