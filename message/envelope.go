// Package message defines the envelopes and payloads exchanged on the
// software bus between TEC nodes and the ground.
//
// # Topics
//
// A node subscribes to the command topic, the status request topic and the
// telemetry topics of its two peers. Telemetry topics are spaced by three
// identifiers per node, starting at 0x0891.
//
// # Wire format
//
// Payloads are packed big-endian structures of fixed size. The declared
// Length of an Envelope is the size of the whole message, header included,
// and is what the dispatcher checks before decoding a payload.
package message

import "fmt"

// Topic identifies a bus message stream.
type Topic uint16

const (
	CommandTopic       Topic = 0x1890
	StatusRequestTopic Topic = 0x1891
	TelemetryTopicBase Topic = 0x0891
)

// ClusterSize is the number of nodes voting together.
const ClusterSize = 3

// TelemetryTopic returns the topic on which node publishes its status report.
func TelemetryTopic(node int) Topic {
	return TelemetryTopicBase + Topic(3*node)
}

// TelemetryOwner returns the node publishing on a telemetry topic. It
// reports false for any other topic.
func TelemetryOwner(t Topic) (int, bool) {
	if t < TelemetryTopicBase {
		return 0, false
	}
	offset := int(t - TelemetryTopicBase)
	if offset%3 != 0 || offset/3 >= ClusterSize {
		return 0, false
	}
	return offset / 3, true
}

func (t Topic) String() string {
	return fmt.Sprintf("0x%04X", uint16(t))
}

// CommandCode selects a command within CommandTopic.
type CommandCode uint16

const (
	Noop CommandCode = iota
	ResetCounters
	Process
	DisplayParamCode
	GetTemperature
)

func (c CommandCode) String() string {
	switch c {
	case Noop:
		return "NOOP"
	case ResetCounters:
		return "RESET_COUNTERS"
	case Process:
		return "PROCESS"
	case DisplayParamCode:
		return "DISPLAY_PARAM"
	case GetTemperature:
		return "GET_TEMPERATURE"
	}
	return fmt.Sprintf("CC(%d)", uint16(c))
}

const (
	CommandHeaderLength   = 8
	TelemetryHeaderLength = 16
)

// Envelope is an inbound or outbound bus message.
// Code is only meaningful on CommandTopic.
type Envelope struct {
	Topic   Topic
	Code    CommandCode
	Length  int
	Payload []byte
}

// NewCommand builds a command envelope whose declared length matches its payload.
func NewCommand(code CommandCode, payload []byte) Envelope {
	return Envelope{
		Topic:   CommandTopic,
		Code:    code,
		Length:  CommandHeaderLength + len(payload),
		Payload: payload,
	}
}

// NewStatusRequest builds the housekeeping request sent by the scheduler.
func NewStatusRequest() Envelope {
	return Envelope{Topic: StatusRequestTopic, Length: CommandHeaderLength}
}

// NewTelemetry builds a telemetry envelope on topic.
func NewTelemetry(topic Topic, payload []byte) Envelope {
	return Envelope{
		Topic:   topic,
		Length:  TelemetryHeaderLength + len(payload),
		Payload: payload,
	}
}
