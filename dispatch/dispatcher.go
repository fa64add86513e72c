// Package dispatch routes the messages received by a TEC node.
//
// The Dispatcher is the only entry point of the node's core: ground
// commands are length checked and executed, status requests produce a
// housekeeping report and peer telemetry feeds the majority voter.
// Malformed or unexpected messages are reported and dropped without
// touching the voting state.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/luca-patrignani/tec/consensus"
	"github.com/luca-patrignani/tec/events"
	"github.com/luca-patrignani/tec/message"
)

// Version is reported by the NOOP command.
const Version = "1.0.0"

var (
	ErrUnknownTopic   = errors.New("invalid message identifier")
	ErrUnknownCommand = errors.New("invalid command code")
	ErrLength         = errors.New("invalid message length")
	ErrMalformed      = errors.New("malformed payload")
)

// Routes are the topics a node listens to besides the command and status
// request topics.
type Routes struct {
	Telemetry message.Topic
	PeerA     message.Topic
	PeerB     message.Topic
}

// RoutesFor returns the routes of node in a three node cluster. The peers
// of a node are the two other nodes in ascending order.
func RoutesFor(node int) (Routes, error) {
	if node < 0 || node > 2 {
		return Routes{}, fmt.Errorf("node %d is not one of 0, 1, 2", node)
	}
	var peers []message.Topic
	for i := range 3 {
		if i != node {
			peers = append(peers, message.TelemetryTopic(i))
		}
	}
	return Routes{
		Telemetry: message.TelemetryTopic(node),
		PeerA:     peers[0],
		PeerB:     peers[1],
	}, nil
}

// Dispatcher processes inbound messages one at a time.
type Dispatcher struct {
	state     *State
	voter     *consensus.Voter
	routes    Routes
	publisher Publisher
	tables    TableStore
	library   Library
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher mutating state. tables and library may
// be nil, in which case PROCESS fails.
func NewDispatcher(
	state *State,
	voter *consensus.Voter,
	routes Routes,
	publisher Publisher,
	tables TableStore,
	library Library,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		state:     state,
		voter:     voter,
		routes:    routes,
		publisher: publisher,
		tables:    tables,
		library:   library,
		logger:    logger,
	}
}

// RouteMessage processes env to completion. Every failure is logged and
// returned; none of them leaves the state inconsistent.
func (d *Dispatcher) RouteMessage(env message.Envelope) error {
	switch env.Topic {
	case message.CommandTopic:
		return d.processCommand(env)
	case message.StatusRequestTopic:
		return d.sendStatus()
	case d.routes.PeerA:
		return d.processTelemetry(env, consensus.PeerA)
	case d.routes.PeerB:
		return d.processTelemetry(env, consensus.PeerB)
	}
	d.logger.Error("invalid command packet", events.Attr(events.MessageIDErr), "topic", env.Topic.String())
	return fmt.Errorf("%w: %v", ErrUnknownTopic, env.Topic)
}

// VerifyLength reports whether the declared length of env is expected.
// On mismatch the error counter is incremented.
func (d *Dispatcher) VerifyLength(env message.Envelope, expected int) bool {
	if env.Length == expected {
		return true
	}
	d.logger.Error("invalid message length",
		events.Attr(events.CommandLengthErr),
		"topic", env.Topic.String(),
		"code", uint16(env.Code),
		"length", env.Length,
		"expected", expected,
	)
	d.state.Counters.Error++
	return false
}

func (d *Dispatcher) processCommand(env message.Envelope) error {
	spec, ok := commands[env.Code]
	if !ok {
		d.logger.Error("invalid ground command code", events.Attr(events.CommandCodeErr), "code", uint16(env.Code))
		return fmt.Errorf("%w: %d", ErrUnknownCommand, uint16(env.Code))
	}
	if !d.VerifyLength(env, spec.length) {
		return fmt.Errorf("%w: %v", ErrLength, env.Code)
	}
	cmd, err := spec.decode(env.Payload)
	if err != nil {
		return d.malformed(env, err)
	}
	return cmd.execute(d)
}

func (d *Dispatcher) processTelemetry(env message.Envelope, slot consensus.Slot) error {
	if !d.VerifyLength(env, message.TelemetryHeaderLength+message.StatusReportSize) {
		return fmt.Errorf("%w: telemetry %v", ErrLength, env.Topic)
	}
	var report message.StatusReport
	if err := report.UnmarshalBinary(env.Payload); err != nil {
		return d.malformed(env, err)
	}
	d.voter.UpdateVote(&d.state.Voting, slot, report.Temperature)
	return nil
}

// malformed handles a payload that matches its declared length but cannot
// be decoded.
func (d *Dispatcher) malformed(env message.Envelope, err error) error {
	d.logger.Error("malformed message payload",
		events.Attr(events.CommandLengthErr),
		"topic", env.Topic.String(),
		"code", uint16(env.Code),
		"error", err,
	)
	d.state.Counters.Error++
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

func (d *Dispatcher) sendStatus() error {
	payload, err := d.state.Report().MarshalBinary()
	if err != nil {
		return err
	}
	var errs []error
	if d.publisher != nil {
		if err := d.publisher.Publish(message.NewTelemetry(d.routes.Telemetry, payload)); err != nil {
			d.logger.Error("failed to send housekeeping telemetry", "error", err)
			errs = append(errs, err)
		}
	}
	if d.tables != nil && d.tables.Manage() {
		d.logger.Info("table updated", events.Attr(events.ValueInf), "table", d.tables.Name())
	}
	return errors.Join(errs...)
}

func (NoopCommand) execute(d *Dispatcher) error {
	d.state.Counters.Command++
	d.logger.Info("NOOP command", events.Attr(events.NoopInf), "version", Version)
	return nil
}

func (ResetCountersCommand) execute(d *Dispatcher) error {
	d.state.Counters = Counters{}
	d.logger.Info("RESET command", events.Attr(events.ResetInf))
	return nil
}

func (ProcessCommand) execute(d *Dispatcher) error {
	if d.tables == nil {
		d.logger.Error("no table registered", events.Attr(events.TableRegisterErr))
		return errors.New("no table registered")
	}
	tbl, err := d.tables.Active()
	if err != nil {
		d.logger.Error("failed to get table", events.Attr(events.TableRegisterErr), "table", d.tables.Name(), "error", err)
		return err
	}
	d.logger.Info("example table", events.Attr(events.ValueInf), "int1", tbl.Int1, "int2", tbl.Int2)
	crc, err := d.tables.CRC()
	if err != nil {
		return err
	}
	d.logger.Info("table CRC", events.Attr(events.ValueInf), "table", d.tables.Name(), "crc", fmt.Sprintf("0x%08X", crc))
	if d.library == nil {
		return nil
	}
	return d.library.Function()
}

func (c DisplayParamCommand) execute(d *Dispatcher) error {
	d.state.Counters.Command++
	d.logger.Info("display parameters",
		events.Attr(events.ValueInf),
		"val_u32", c.Param.ValU32,
		"val_i16", c.Param.ValI16,
		"val_str", c.Param.ValStr,
	)
	return nil
}

func (c GetTemperatureCommand) execute(d *Dispatcher) error {
	d.state.Counters.Command++
	d.logger.Info("requested temperature", events.Attr(events.TemperatureInf), "unit", c.Unit.String())
	d.state.Unit = c.Unit
	return nil
}
