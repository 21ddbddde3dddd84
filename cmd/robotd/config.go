package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	scanInterval    time.Duration
	tickInterval    time.Duration
	logFormat       string
	logLevel        string
	logAll          bool
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", "127.0.0.1:9001", "Websocket listen address")
	scanInterval := flag.Duration("scan-interval", 2*time.Second, "Serial device rescan interval (min 2s)")
	tickInterval := flag.Duration("tick-interval", time.Millisecond, "Main loop tick interval")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	logAll := flag.Bool("log-all", false, "Tap every topic-routed frame into the log, not just diagnostics")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise the websocket endpoint via mDNS")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default robotd-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Flags explicitly set take precedence over environment overrides.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.listenAddr = *listen
	cfg.scanInterval = *scanInterval
	cfg.tickInterval = *tickInterval
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.logAll = *logAll
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to bind listeners, only checks values and ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.listenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.scanInterval < 2*time.Second {
		return fmt.Errorf("scan-interval must be >= 2s (got %s)", c.scanInterval)
	}
	if c.tickInterval <= 0 {
		return errors.New("tick-interval must be > 0")
	}
	return nil
}

// applyEnvOverrides maps ROBOTD_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are
// ignored; durations use Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["listen"]; !ok {
		if v, ok := get("ROBOTD_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["scan-interval"]; !ok {
		if v, ok := get("ROBOTD_SCAN_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.scanInterval = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ROBOTD_SCAN_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["tick-interval"]; !ok {
		if v, ok := get("ROBOTD_TICK_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.tickInterval = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ROBOTD_TICK_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("ROBOTD_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("ROBOTD_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["log-all"]; !ok {
		if v, ok := get("ROBOTD_LOG_ALL"); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.logAll = b
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid ROBOTD_LOG_ALL: %w", err)
			}
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("ROBOTD_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("ROBOTD_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ROBOTD_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("ROBOTD_MDNS_ENABLE"); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.mdnsEnable = b
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid ROBOTD_MDNS_ENABLE: %w", err)
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("ROBOTD_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
