package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "SPEEDTEST_"

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No env file, skipping", "path", p)
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		slog.Debug("Loaded env file", "path", p)
	}
	return nil
}

// ApplyEnv overrides c with any SPEEDTEST_* variables present in the
// environment.
func (c *Config) ApplyEnv() error {
	ints := map[string]*int{
		"BROADCAST_PORT":           &c.BroadcastPort,
		"TCP_PORT":                 &c.TCPPort,
		"UDP_PORT":                 &c.UDPPort,
		"SEGMENT_PAYLOAD_SIZE":     &c.SegmentPayloadSize,
		"TCP_BUFFER_SIZE":          &c.TCPBufferSize,
		"UDP_READ_BUFFER_SIZE":     &c.UDPReadBufferSize,
		"MAX_CONCURRENT_TRANSFERS": &c.MaxConcurrentTransfers,
	}
	for key, dst := range ints {
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"BROADCAST_INTERVAL":     &c.BroadcastInterval,
		"UDP_INACTIVITY_TIMEOUT": &c.UDPInactivityTimeout,
		"TRANSFER_TIMEOUT":       &c.TransferTimeout,
		"UDP_SESSION_TIMEOUT":    &c.UDPSessionTimeout,
		"REQUEST_READ_TIMEOUT":   &c.RequestReadTimeout,
	}
	for key, dst := range durations {
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		v, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = v
	}

	if raw, ok := lookup("BROADCAST_ADDR"); ok {
		c.BroadcastAddr = raw
	}
	if raw, ok := lookup("DISCOVERY"); ok {
		c.Discovery = DiscoveryMode(raw)
	}
	if raw, ok := lookup("MDNS"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%sMDNS: %w", EnvPrefix, err)
		}
		c.MDNS = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// parseDuration accepts Go durations and bare numbers, which mean seconds.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

// Load builds a validated Config from defaults, the given .env files and the
// environment, in increasing order of precedence.
func Load(envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
