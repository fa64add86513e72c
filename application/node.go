// Package application runs a TEC node: it pends on the bus, samples the
// local thermometer for every message and hands the message to the
// dispatcher. A Scheduler injects the periodic status requests.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luca-patrignani/tec/consensus"
	"github.com/luca-patrignani/tec/dispatch"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/events"
	"github.com/luca-patrignani/tec/message"
)

// Bus is the part of network.Bus used by a node.
type Bus interface {
	Subscribe(topics ...message.Topic)
	Receive(ctx context.Context) (message.Envelope, error)
	Publish(ctx context.Context, env message.Envelope) error
}

// Config collects the collaborators of a Node.
type Config struct {
	NodeID      int
	Bus         Bus
	Thermometer sensor.Thermometer
	Tables      dispatch.TableStore
	Library     dispatch.Library
	Recorder    consensus.Recorder
	Logger      *slog.Logger
	// OnStatus, if set, is called from the dispatch loop after every
	// status report published.
	OnStatus func(status Status)
}

// Status is what a node tells its host after publishing a report.
type Status struct {
	Node      int
	Report    message.StatusReport
	Outcome   consensus.Outcome
	Stale     bool
	// LostVotes counts the rounds this node was outvoted by its peers.
	LostVotes uint32
}

// Node owns the state of a TEC node and its single dispatch loop.
type Node struct {
	id          int
	bus         Bus
	thermometer sensor.Thermometer
	state       *dispatch.State
	voter       *consensus.Voter
	dispatcher  *dispatch.Dispatcher
	onStatus    func(Status)
	logger      *slog.Logger
	ctx         context.Context
}

// NewNode wires a node and subscribes its bus to the command, status
// request and peer telemetry topics.
func NewNode(cfg Config) (*Node, error) {
	routes, err := dispatch.RoutesFor(cfg.NodeID)
	if err != nil {
		return nil, err
	}
	if cfg.Bus == nil {
		return nil, errors.New("no bus configured")
	}
	if cfg.Thermometer.Source == nil {
		cfg.Thermometer.Source = sensor.RandomSource{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("node", cfg.NodeID)

	n := &Node{
		id:          cfg.NodeID,
		bus:         cfg.Bus,
		thermometer: cfg.Thermometer,
		state:       dispatch.NewState(),
		voter:       consensus.NewVoter(logger, cfg.Recorder),
		onStatus:    cfg.OnStatus,
		logger:      logger,
		ctx:         context.Background(),
	}
	n.dispatcher = dispatch.NewDispatcher(
		n.state,
		n.voter,
		routes,
		dispatch.PublisherFunc(n.publish),
		cfg.Tables,
		cfg.Library,
		logger,
	)
	n.bus.Subscribe(message.CommandTopic, message.StatusRequestTopic, routes.PeerA, routes.PeerB)
	return n, nil
}

// Run processes messages until ctx is done or the bus fails. It returns
// nil on cancellation.
func (n *Node) Run(ctx context.Context) error {
	n.ctx = ctx
	n.logger.Info("TEC app initialized", events.Attr(events.InitInf), "version", dispatch.Version)
	for {
		env, err := n.bus.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.logger.Error("pipe read error, app will exit", events.Attr(events.PipeErr), "error", err)
			return fmt.Errorf("receive: %w", err)
		}
		n.Step(env)
	}
}

// Step handles a single message: the local reading is refreshed before the
// message is routed. Every wakeup samples the sensor, including messages
// the dispatcher then rejects; only peer telemetry starts a vote.
func (n *Node) Step(env message.Envelope) {
	n.state.Reserved++
	n.sample()
	if err := n.dispatcher.RouteMessage(env); err != nil {
		n.logger.Debug("message rejected", "topic", env.Topic.String(), "error", err)
	}
}

func (n *Node) sample() {
	value, err := n.thermometer.Sample(n.state.Unit)
	switch {
	case errors.Is(err, sensor.ErrInvalidUnit):
		n.logger.Error("invalid temperature unit, falling back to Celsius",
			events.Attr(events.InvalidUnitErr), "unit", n.state.Unit.String())
		n.state.Unit = sensor.Celsius
	case err != nil:
		n.logger.Error("failed to read temperature", "error", err)
		return
	}
	n.voter.SetLocal(&n.state.Voting, value)
}

func (n *Node) publish(env message.Envelope) error {
	err := n.bus.Publish(n.ctx, env)
	if err == nil && n.onStatus != nil {
		n.onStatus(Status{
			Node:      n.id,
			Report:    n.state.Report(),
			Outcome:   n.state.Voting.Outcome(),
			Stale:     n.state.Voting.Stale(),
			LostVotes: n.state.Voting.LostVotes(),
		})
	}
	return err
}
