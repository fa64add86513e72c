package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// config is the node configuration, read from the environment.
type config struct {
	NodeID        int
	Listen        string
	Peers         map[int]string
	PeerKeys      map[int]string
	Key           string
	Timeout       time.Duration
	PipeDepth     int
	HkInterval    time.Duration
	Table         string
	DiscoveryPort uint16
	HealthListen  string
	Sensor        string
	TLSCert       string
	TLSKey        string
	TLSCAs        []string
	Debug         bool
}

const (
	defaultPort          = 7000
	defaultDiscoveryPort = 53552
)

// loadEnv loads the given .env files into the environment without
// overriding variables already set. Missing files are ignored.
func loadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// loadConfig reads the configuration. TEC_NODE_ID is only required when
// requireNode is set.
func loadConfig(requireNode bool) (config, error) {
	c := config{
		Listen:        getEnv("TEC_LISTEN", fmt.Sprintf("127.0.0.1:%d", defaultPort)),
		Key:           os.Getenv("TEC_KEY"),
		Table:         os.Getenv("TEC_TABLE"),
		HealthListen:  os.Getenv("TEC_HEALTH_LISTEN"),
		Sensor:        getEnv("TEC_SENSOR", "random"),
		TLSCert:       os.Getenv("TEC_TLS_CERT"),
		TLSKey:        os.Getenv("TEC_TLS_KEY"),
		TLSCAs:        splitList(os.Getenv("TEC_TLS_CA")),
		DiscoveryPort: defaultDiscoveryPort,
	}
	var err error
	var errs []error
	if v := os.Getenv("TEC_NODE_ID"); v != "" || requireNode {
		if c.NodeID, err = strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("TEC_NODE_ID: %w", err))
		} else if c.NodeID < 0 || c.NodeID > 2 {
			errs = append(errs, fmt.Errorf("TEC_NODE_ID: %d is not one of 0, 1, 2", c.NodeID))
		}
	}
	if c.Peers, err = parseRankMap(os.Getenv("TEC_PEERS")); err != nil {
		errs = append(errs, fmt.Errorf("TEC_PEERS: %w", err))
	}
	if c.PeerKeys, err = parseRankMap(os.Getenv("TEC_PEER_KEYS")); err != nil {
		errs = append(errs, fmt.Errorf("TEC_PEER_KEYS: %w", err))
	}
	if c.Timeout, err = getDuration("TEC_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.HkInterval, err = getDuration("TEC_HK_INTERVAL", time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.PipeDepth, err = strconv.Atoi(getEnv("TEC_PIPE_DEPTH", "32")); err != nil || c.PipeDepth <= 0 {
		errs = append(errs, fmt.Errorf("TEC_PIPE_DEPTH: must be a positive integer"))
	}
	if v := os.Getenv("TEC_DISCOVERY_PORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			errs = append(errs, fmt.Errorf("TEC_DISCOVERY_PORT: %w", err))
		}
		c.DiscoveryPort = uint16(port)
	}
	if v := os.Getenv("TEC_DEBUG"); v != "" {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			errs = append(errs, fmt.Errorf("TEC_DEBUG: %w", err))
		}
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		errs = append(errs, errors.New("TEC_TLS_CERT and TEC_TLS_KEY must be set together"))
	}
	return c, errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// parseRankMap parses "rank=value" pairs separated by commas.
func parseRankMap(s string) (map[int]string, error) {
	m := map[int]string{}
	for _, item := range splitList(s) {
		rank, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not in rank=value form", item)
		}
		r, err := strconv.Atoi(strings.TrimSpace(rank))
		if err != nil {
			return nil, fmt.Errorf("invalid rank in %q: %w", item, err)
		}
		m[r] = strings.TrimSpace(value)
	}
	return m, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
