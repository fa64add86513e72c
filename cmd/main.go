package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"go.dedis.ch/kyber/v4"

	"github.com/luca-patrignani/tec/application"
	"github.com/luca-patrignani/tec/consensus"
	"github.com/luca-patrignani/tec/discovery"
	"github.com/luca-patrignani/tec/dispatch"
	"github.com/luca-patrignani/tec/domain/sensor"
	"github.com/luca-patrignani/tec/events"
	"github.com/luca-patrignani/tec/ledger"
	"github.com/luca-patrignani/tec/network"
	"github.com/luca-patrignani/tec/table"
)

const usage = `usage:
  %[1]s node                      run a node configured by TEC_* variables
  %[1]s send <command> [args...]  send a ground command to every node
  %[1]s cert <address> <dir>      generate a certificate and a signing key
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}
	if err := loadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Create a new slog handler with the default PTerm logger
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)

	var err error
	switch os.Args[1] {
	case "node":
		err = runNode(logger)
	case "send":
		err = runSend(logger, os.Args[2:])
	case "cert":
		err = runCert(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func runNode(logger *slog.Logger) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if cfg.Debug {
		pterm.DefaultLogger.Level = pterm.LogLevelDebug
	}
	source, err := parseSensor(cfg.Sensor)
	if err != nil {
		return err
	}
	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Error("failed to listen on address", "address", cfg.Listen, "error", err)
		return err
	}
	pterm.Info.Println("Listening on " + l.Addr().String())

	key, err := signingKey(cfg, logger)
	if err != nil {
		return err
	}
	addresses, peerKeys, err := resolvePeers(ctx, cfg, l, key, logger)
	if err != nil {
		return err
	}
	printPeers(addresses, cfg.NodeID)
	if _, ok := peerKeys[groundRank]; len(peerKeys) > 0 && !ok {
		logger.Warn("TEC_PEER_KEYS has no key for the ground station, commands will be refused", "rank", groundRank)
	}

	opts, err := busOptions(cfg, key, peerKeys, logger)
	if err != nil {
		return err
	}
	bus := network.NewBus(cfg.NodeID, addresses, opts...)
	bus.Start(l)
	defer bus.Close()

	tables := table.NewStore("TEC.ExampleTable")
	if cfg.Table != "" {
		if err := tables.Stage(cfg.Table); err != nil {
			logger.Error("failed to load table", events.Attr(events.TableRegisterErr), "error", err)
		}
	}

	var health *healthServer
	if cfg.HealthListen != "" {
		hl, err := net.Listen("tcp", cfg.HealthListen)
		if err != nil {
			return fmt.Errorf("health listener: %w", err)
		}
		health = startHealth(hl, logger)
		defer health.stop()
	}

	votes := ledger.NewVoteLog(cfg.NodeID, 0)
	node, err := application.NewNode(application.Config{
		NodeID:      cfg.NodeID,
		Bus:         bus,
		Thermometer: sensor.Thermometer{Source: source},
		Tables:      tables,
		Library:     &dispatch.LogLibrary{Logger: logger},
		Recorder:    votes,
		Logger:      logger,
		OnStatus: func(s application.Status) {
			printStatus(s)
			health.setVoter(!s.Stale && s.Outcome != consensus.Uninitialized)
		},
	})
	if err != nil {
		return err
	}

	scheduler := application.Scheduler{Bus: bus, Interval: cfg.HkInterval, Logger: logger}
	go scheduler.Run(ctx)

	err = node.Run(ctx)
	if verr := votes.Verify(); verr != nil {
		logger.Error("vote log corrupted", "error", verr)
	} else {
		logger.Info("vote log verified", "rounds", votes.Len())
	}
	return err
}

func parseSensor(s string) (sensor.Source, error) {
	if s == "random" {
		return sensor.RandomSource{}, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("TEC_SENSOR: expected \"random\" or a reading in [0, 255], got %q", s)
	}
	return sensor.FixedSource(v), nil
}

func signingKey(cfg config, logger *slog.Logger) (network.KeyPair, error) {
	if cfg.Key != "" {
		return network.ParsePrivateKey(cfg.Key)
	}
	key := network.NewKeyPair()
	pub, err := network.MarshalPublicKey(key.Public)
	if err != nil {
		return network.KeyPair{}, err
	}
	logger.Info("generated an ephemeral signing key", "public_key", pub)
	return key, nil
}

// resolvePeers returns the bus addresses and the known signing keys of the
// cluster. Without TEC_PEERS the other nodes are found with discovery.
func resolvePeers(ctx context.Context, cfg config, l net.Listener, key network.KeyPair, logger *slog.Logger) (map[int]string, map[int]kyber.Point, error) {
	addresses := map[int]string{cfg.NodeID: l.Addr().String()}
	keys := map[int]kyber.Point{}
	for rank, s := range cfg.PeerKeys {
		pub, err := network.ParsePublicKey(s)
		if err != nil {
			return nil, nil, fmt.Errorf("key of node %d: %w", rank, err)
		}
		keys[rank] = pub
	}

	if len(cfg.Peers) > 0 {
		var localIP net.IP
		if tcpAddr, ok := l.Addr().(*net.TCPAddr); ok {
			localIP = tcpAddr.IP
		}
		for rank, addr := range cfg.Peers {
			if rank == cfg.NodeID {
				continue
			}
			resolved, err := resolvePeer(localIP, addr, defaultPort)
			if err != nil {
				return nil, nil, fmt.Errorf("address of node %d: %w", rank, err)
			}
			addresses[rank] = resolved
		}
		return addresses, keys, nil
	}

	pub, err := network.MarshalPublicKey(key.Public)
	if err != nil {
		return nil, nil, err
	}
	d := &discovery.Discover{
		Announcement: discovery.Announcement{
			Rank:      cfg.NodeID,
			Address:   l.Addr().String(),
			PublicKey: pub,
		},
		Port:                         cfg.DiscoveryPort,
		IntervalBetweenAnnouncements: time.Second,
		Logger:                       logger,
	}
	if err := d.Start(); err != nil {
		return nil, nil, fmt.Errorf("discovery: %w", err)
	}
	defer d.Close()

	spinner, _ := pterm.DefaultSpinner.Start("Discovering the other nodes ...")
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	entries, err := d.Collect(ctx, 2)
	if err != nil {
		spinner.Fail()
		return nil, nil, err
	}
	spinner.Success()
	for rank, e := range entries {
		if rank == cfg.NodeID || rank < 0 || rank > 2 {
			logger.Warn("ignoring announcement", "rank", rank, "address", e.Address)
			continue
		}
		addresses[rank] = e.Address
		if _, pinned := keys[rank]; pinned || e.PublicKey == "" {
			continue
		}
		pub, err := network.ParsePublicKey(e.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("key of node %d: %w", rank, err)
		}
		keys[rank] = pub
	}
	if len(addresses) != 3 {
		return nil, nil, errors.New("discovery did not find two valid peers")
	}
	return addresses, keys, nil
}

func busOptions(cfg config, key network.KeyPair, keys map[int]kyber.Point, logger *slog.Logger) ([]network.BusOption, error) {
	opts := []network.BusOption{
		network.WithTimeout(cfg.Timeout),
		network.WithPipeDepth(cfg.PipeDepth),
		network.WithSigner(key),
		network.WithLogger(logger),
	}
	if len(keys) > 0 {
		opts = append(opts, network.WithPeerKeys(keys))
	}
	if cfg.TLSCert == "" {
		return opts, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, err
	}
	opts = append(opts, network.WithCertificate(cert))
	if len(cfg.TLSCAs) > 0 {
		pool, err := network.LoadCertPool(cfg.TLSCAs...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.WithLimitedCAs(pool))
	}
	return opts, nil
}
