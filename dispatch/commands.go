package dispatch

import (
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/message"
)

// Command is a decoded ground command. The set of commands is closed:
// every variant lives in this package and implements execute.
type Command interface {
	Code() message.CommandCode
	execute(d *Dispatcher) error
}

type NoopCommand struct{}

type ResetCountersCommand struct{}

type ProcessCommand struct{}

type DisplayParamCommand struct {
	Param message.DisplayParam
}

type GetTemperatureCommand struct {
	Unit sensor.Unit
}

func (NoopCommand) Code() message.CommandCode           { return message.Noop }
func (ResetCountersCommand) Code() message.CommandCode  { return message.ResetCounters }
func (ProcessCommand) Code() message.CommandCode        { return message.Process }
func (DisplayParamCommand) Code() message.CommandCode   { return message.DisplayParamCode }
func (GetTemperatureCommand) Code() message.CommandCode { return message.GetTemperature }

type commandSpec struct {
	length int
	decode func(payload []byte) (Command, error)
}

func noPayload(c Command) func([]byte) (Command, error) {
	return func([]byte) (Command, error) { return c, nil }
}

// commands maps each command code to its expected message length and decoder.
var commands = map[message.CommandCode]commandSpec{
	message.Noop: {
		length: message.CommandHeaderLength,
		decode: noPayload(NoopCommand{}),
	},
	message.ResetCounters: {
		length: message.CommandHeaderLength,
		decode: noPayload(ResetCountersCommand{}),
	},
	message.Process: {
		length: message.CommandHeaderLength,
		decode: noPayload(ProcessCommand{}),
	},
	message.DisplayParamCode: {
		length: message.CommandHeaderLength + message.DisplayParamSize,
		decode: func(payload []byte) (Command, error) {
			var c DisplayParamCommand
			if err := c.Param.UnmarshalBinary(payload); err != nil {
				return nil, err
			}
			return c, nil
		},
	},
	message.GetTemperature: {
		length: message.CommandHeaderLength + message.TemperatureSize,
		decode: func(payload []byte) (Command, error) {
			var r message.TemperatureRequest
			if err := r.UnmarshalBinary(payload); err != nil {
				return nil, err
			}
			return GetTemperatureCommand{Unit: sensor.Unit(r.Unit)}, nil
		},
	},
}

// ExpectedLength returns the message length of the command with code.
func ExpectedLength(code message.CommandCode) (int, bool) {
	spec, ok := commands[code]
	return spec.length, ok
}

// Encode builds the envelope carrying c.
func Encode(c Command) (message.Envelope, error) {
	var payload []byte
	var err error
	switch c := c.(type) {
	case DisplayParamCommand:
		payload, err = c.Param.MarshalBinary()
	case GetTemperatureCommand:
		payload, err = message.TemperatureRequest{Unit: byte(c.Unit)}.MarshalBinary()
	}
	if err != nil {
		return message.Envelope{}, err
	}
	return message.NewCommand(c.Code(), payload), nil
}
