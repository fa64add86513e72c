// Package events lists the event identifiers reported by a TEC node.
//
// Every log record emitted by the node carries its identifier under the
// "eid" attribute so that ground tooling can filter the stream without
// parsing messages.
package events

import "log/slog"

// ID identifies a class of event.
type ID int

const (
	Reserved ID = iota
	InitInf
	CommandCodeErr
	NoopInf
	ResetInf
	MessageIDErr
	CommandLengthErr
	PipeErr
	ValueInf
	CreatePipeErr
	SubscribeHkErr
	SubscribeCmdErr
	TableRegisterErr
	TemperatureInf
	InvalidUnitErr
	VoteErr
)

// Key is the attribute key under which the identifier is logged.
const Key = "eid"

// Attr returns the slog attribute for id.
func Attr(id ID) slog.Attr {
	return slog.Int(Key, int(id))
}
