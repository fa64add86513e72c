package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/luca-patrignani/tec/consensus"
	"github.com/luca-patrignani/tec/dispatch"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/events"
	"github.com/luca-patrignani/tec/events/eventstest"
	"github.com/luca-patrignani/tec/ledger"
	"github.com/luca-patrignani/tec/message"
	"github.com/luca-patrignani/tec/network"
)

type fakeBus struct {
	mu         sync.Mutex
	subscribed []message.Topic
	published  []message.Envelope
	pipe       chan message.Envelope
	err        error
}

func newFakeBus() *fakeBus {
	return &fakeBus{pipe: make(chan message.Envelope, 8)}
}

func (b *fakeBus) Subscribe(topics ...message.Topic) {
	b.subscribed = append(b.subscribed, topics...)
}

func (b *fakeBus) Receive(ctx context.Context) (message.Envelope, error) {
	if b.err != nil {
		return message.Envelope{}, b.err
	}
	select {
	case env := <-b.pipe:
		return env, nil
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	}
}

func (b *fakeBus) Publish(ctx context.Context, env message.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, env)
	return nil
}

func (b *fakeBus) Deliver(ctx context.Context, env message.Envelope) error {
	select {
	case b.pipe <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func newTestNode(t *testing.T, id int, value uint8) (*Node, *fakeBus, *eventstest.Handler) {
	t.Helper()
	logger, h := eventstest.NewLogger()
	bus := newFakeBus()
	n, err := NewNode(Config{
		NodeID:      id,
		Bus:         bus,
		Thermometer: sensor.Thermometer{Source: sensor.FixedSource(value)},
		Logger:      logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return n, bus, h
}

func TestNewNodeSubscriptions(t *testing.T) {
	_, bus, _ := newTestNode(t, 1, 0)
	expected := []message.Topic{message.CommandTopic, message.StatusRequestTopic, message.TelemetryTopic(0), message.TelemetryTopic(2)}
	if fmt.Sprint(bus.subscribed) != fmt.Sprint(expected) {
		t.Fatalf("expected %v, actual %v", expected, bus.subscribed)
	}
	if _, err := NewNode(Config{NodeID: 5, Bus: bus}); err == nil {
		t.Fatal("expected an error for node 5")
	}
	if _, err := NewNode(Config{NodeID: 0}); err == nil {
		t.Fatal("expected an error without a bus")
	}
}

func TestStepSamplesBeforeRouting(t *testing.T) {
	n, bus, _ := newTestNode(t, 0, 25)
	n.Step(message.NewCommand(message.Noop, nil))
	n.Step(message.NewStatusRequest())
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published report, got %d", len(bus.published))
	}
	var report message.StatusReport
	if err := report.UnmarshalBinary(bus.published[0].Payload); err != nil {
		t.Fatal(err)
	}
	expected := message.StatusReport{CommandCounter: 1, Reserved: 2, Unit: 'C', Temperature: 25}
	if report != expected {
		t.Fatalf("expected %+v, actual %+v", expected, report)
	}
}

func TestStepOnUnknownTopicOnlyRefreshesLocalReading(t *testing.T) {
	n, bus, h := newTestNode(t, 0, 10)
	n.Step(message.Envelope{Topic: 0x1234, Length: message.CommandHeaderLength})
	if n.state.Reserved != 1 {
		t.Fatalf("expected the message to be counted, reserved=%d", n.state.Reserved)
	}
	if local := n.state.Voting.Local().Value; local != 10 {
		t.Fatalf("expected the local reading 10, actual %d", local)
	}
	if n.state.Counters != (dispatch.Counters{}) {
		t.Fatalf("expected untouched counters, actual %+v", n.state.Counters)
	}
	if n.state.Voting.Outcome() != consensus.Uninitialized || n.state.Voting.Value() != 0 {
		t.Fatal("an unknown topic must not start a voting round")
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected nothing published, got %d", len(bus.published))
	}
	if c := h.Count(slog.LevelError, events.MessageIDErr); c != 1 {
		t.Fatalf("expected 1 message id event, got %d", c)
	}
}

func TestFahrenheitSamples(t *testing.T) {
	n, _, _ := newTestNode(t, 0, 25)
	env, err := dispatch.Encode(dispatch.GetTemperatureCommand{Unit: sensor.Fahrenheit})
	if err != nil {
		t.Fatal(err)
	}
	n.Step(env)
	n.Step(message.NewCommand(message.Noop, nil))
	if local := n.state.Voting.Local().Value; local != 77 {
		t.Fatalf("expected 77, actual %d", local)
	}
}

func TestInvalidUnitFallsBackToCelsius(t *testing.T) {
	n, _, h := newTestNode(t, 0, 25)
	n.state.Unit = sensor.Unit('K')
	n.Step(message.NewCommand(message.Noop, nil))
	if n.state.Unit != sensor.Celsius {
		t.Fatalf("expected the unit to fall back to C, got %v", n.state.Unit)
	}
	if local := n.state.Voting.Local().Value; local != 25 {
		t.Fatalf("expected the Celsius reading 25, actual %d", local)
	}
	if c := h.Count(slog.LevelError, events.InvalidUnitErr); c != 1 {
		t.Fatalf("expected 1 invalid unit event, got %d", c)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	n, bus, h := newTestNode(t, 0, 25)
	ctx, cancel := context.WithCancel(context.Background())
	fatal := make(chan error, 1)
	go func() {
		fatal <- n.Run(ctx)
	}()
	bus.Deliver(ctx, message.NewStatusRequest())
	deadline := time.Now().Add(5 * time.Second)
	for bus.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-fatal; err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
	if bus.count() != 1 {
		t.Fatalf("expected 1 published report, got %d", bus.count())
	}
	if c := h.Count(slog.LevelInfo, events.InitInf); c != 1 {
		t.Fatalf("expected 1 init event, got %d", c)
	}
}

func TestRunEndsOnPipeError(t *testing.T) {
	n, bus, h := newTestNode(t, 0, 25)
	bus.err = errors.New("pipe broken")
	if err := n.Run(context.Background()); err == nil {
		t.Fatal("expected the pipe error to end the loop")
	}
	if c := h.Count(slog.LevelError, events.PipeErr); c != 1 {
		t.Fatalf("expected 1 pipe error event, got %d", c)
	}
}

func TestClusterOutvotesFaultyNode(t *testing.T) {
	n := 3
	values := []uint8{20, 20, 30}
	listeners, addresses := network.CreateListeners(n)
	buses := make([]*network.Bus, n)
	reports := make([]chan Status, n)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := make(chan error, n)
	for i := 0; i < n; i++ {
		buses[i] = network.NewBus(i, addresses, network.WithTimeout(5*time.Second))
		reports[i] = make(chan Status, 64)
		node, err := NewNode(Config{
			NodeID:      i,
			Bus:         buses[i],
			Thermometer: sensor.Thermometer{Source: sensor.FixedSource(values[i])},
			Recorder:    ledger.NewVoteLog(i, 16),
			OnStatus:    func(s Status) { reports[i] <- s },
		})
		if err != nil {
			t.Fatal(err)
		}
		buses[i].Start(listeners[i])
		defer buses[i].Close()
		go func() {
			fatal <- node.Run(ctx)
		}()
	}

	var last Status
	for round := 0; round < 5 && last.Report.Temperature != 20; round++ {
		for i := 0; i < n; i++ {
			if err := buses[i].Deliver(ctx, message.NewStatusRequest()); err != nil {
				t.Fatal(err)
			}
		}
		select {
		case last = <-reports[2]:
		case <-time.After(5 * time.Second):
			t.Fatal("node 2 did not publish a report")
		}
		time.Sleep(100 * time.Millisecond)
	}
	if last.Report.Temperature != 20 || last.Outcome != consensus.LocalOutvoted {
		t.Fatalf("expected node 2 to be outvoted to 20, actual %d (%v)", last.Report.Temperature, last.Outcome)
	}
	if last.LostVotes == 0 {
		t.Fatal("expected node 2 to count its lost votes")
	}
	cancel()
	for i := 0; i < n; i++ {
		if err := <-fatal; err != nil {
			t.Fatal(err)
		}
	}
}
