package dispatch

import (
	"github.com/luca-patrignani/tec/message"
	"github.com/luca-patrignani/tec/table"
)

// Publisher sends telemetry on the bus.
type Publisher interface {
	Publish(env message.Envelope) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(env message.Envelope) error

func (f PublisherFunc) Publish(env message.Envelope) error {
	return f(env)
}

// TableStore gives access to the example table used by PROCESS.
type TableStore interface {
	Name() string
	Active() (table.Example, error)
	CRC() (uint32, error)
	// Manage commits pending loads and reports whether the table changed.
	Manage() bool
}

// Library is the external processing hook invoked by PROCESS.
type Library interface {
	Function() error
}
