package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"go.dedis.ch/kyber/v4"

	"github.com/luca-patrignani/tec/dispatch"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/message"
	"github.com/luca-patrignani/tec/network"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args     []string
		expected dispatch.Command
	}{
		{[]string{"noop"}, dispatch.NoopCommand{}},
		{[]string{"reset"}, dispatch.ResetCountersCommand{}},
		{[]string{"process"}, dispatch.ProcessCommand{}},
		{[]string{"display", "7", "-3", "abc"}, dispatch.DisplayParamCommand{Param: message.DisplayParam{ValU32: 7, ValI16: -3, ValStr: "abc"}}},
		{[]string{"temperature", "F"}, dispatch.GetTemperatureCommand{Unit: sensor.Fahrenheit}},
	}
	for _, test := range tests {
		actual, err := parseCommand(test.args)
		if err != nil {
			t.Fatalf("%v: %v", test.args, err)
		}
		if actual != test.expected {
			t.Fatalf("%v: expected %+v, actual %+v", test.args, test.expected, actual)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"launch"},
		{"noop", "extra"},
		{"display", "7", "-3"},
		{"display", "x", "-3", "abc"},
		{"display", "7", "40000", "abc"},
		{"display", "7", "-3", "a string that is too long"},
		{"temperature", "FF"},
	} {
		if _, err := parseCommand(args); err == nil {
			t.Fatalf("%v: expected an error", args)
		}
	}
}

func TestRunSend(t *testing.T) {
	clearEnv(t)
	listeners, addresses := network.CreateListeners(1)
	receiver := network.NewBus(0, addresses)
	receiver.Subscribe(message.CommandTopic)
	receiver.Start(listeners[0])
	defer receiver.Close()

	t.Setenv("TEC_PEERS", "0="+addresses[0])
	if err := runSend(slog.Default(), []string{"temperature", "F"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env, err := receiver.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected, _ := dispatch.ExpectedLength(message.GetTemperature)
	if env.Code != message.GetTemperature || env.Length != expected || env.Payload[0] != 'F' {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRunSendNeedsGroundKey(t *testing.T) {
	clearEnv(t)
	ground := network.NewKeyPair()
	listeners, addresses := network.CreateListeners(1)
	receiver := network.NewBus(0, addresses, network.WithPeerKeys(map[int]kyber.Point{groundRank: ground.Public}))
	receiver.Subscribe(message.CommandTopic)
	receiver.Start(listeners[0])
	defer receiver.Close()

	t.Setenv("TEC_PEERS", "0="+addresses[0])
	t.Setenv("TEC_TIMEOUT", "2s")
	if err := runSend(slog.Default(), []string{"noop"}); err == nil {
		t.Fatal("expected an unsigned ground command to be refused")
	}

	priv, err := ground.MarshalPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEC_KEY", priv)
	if err := runSend(slog.Default(), []string{"noop"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env, err := receiver.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if env.Code != message.Noop {
		t.Fatalf("expected %v, actual %v", message.Noop, env.Code)
	}
}
