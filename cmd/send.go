package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/tec/dispatch"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/message"
	"github.com/luca-patrignani/tec/network"
)

// groundRank is the sender rank of commands injected from the ground.
const groundRank = 3

// parseCommand builds a command from its command line form:
//
//	noop
//	reset
//	process
//	display <u32> <i16> <string>
//	temperature <unit>
func parseCommand(args []string) (dispatch.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	arity := map[string]int{"noop": 0, "reset": 0, "process": 0, "display": 3, "temperature": 1}
	n, ok := arity[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
	if len(args)-1 != n {
		return nil, fmt.Errorf("%s expects %d arguments, %d given", args[0], n, len(args)-1)
	}
	switch args[0] {
	case "noop":
		return dispatch.NoopCommand{}, nil
	case "reset":
		return dispatch.ResetCountersCommand{}, nil
	case "process":
		return dispatch.ProcessCommand{}, nil
	case "display":
		u32, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, err
		}
		i16, err := strconv.ParseInt(args[2], 10, 16)
		if err != nil {
			return nil, err
		}
		if len(args[3]) >= message.StringLength {
			return nil, message.ErrStringTooLong
		}
		return dispatch.DisplayParamCommand{Param: message.DisplayParam{
			ValU32: uint32(u32),
			ValI16: int16(i16),
			ValStr: args[3],
		}}, nil
	default:
		if len(args[1]) != 1 {
			return nil, fmt.Errorf("unit must be a single character, got %q", args[1])
		}
		return dispatch.GetTemperatureCommand{Unit: sensor.Unit(args[1][0])}, nil
	}
}

// runSend publishes a ground command to the nodes listed in TEC_PEERS.
func runSend(logger *slog.Logger, args []string) error {
	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}
	env, err := dispatch.Encode(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if len(cfg.Peers) == 0 {
		return fmt.Errorf("TEC_PEERS is empty")
	}
	addresses := map[int]string{}
	for rank, addr := range cfg.Peers {
		host, port, err := splitHostPort(addr, defaultPort)
		if err != nil {
			return err
		}
		addresses[rank] = net.JoinHostPort(host, port)
	}

	var opts []network.BusOption
	if cfg.Key != "" {
		key, err := network.ParsePrivateKey(cfg.Key)
		if err != nil {
			return err
		}
		opts, err = busOptions(cfg, key, nil, logger)
		if err != nil {
			return err
		}
	} else {
		opts = []network.BusOption{network.WithTimeout(cfg.Timeout), network.WithLogger(logger)}
	}
	bus := network.NewBus(groundRank, addresses, opts...)

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Sending %v to %d nodes ...", env.Code, len(addresses)))
	if err := bus.Publish(context.Background(), env); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	return nil
}
