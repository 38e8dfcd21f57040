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
	module      string
	port        int
	logFormat   string
	logLevel    string
	metricsAddr string
	maxClients  int
	idleBackoff time.Duration
	mdnsEnable  bool
	mdnsName    string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	module := flag.String("m", "", "Directory containing main.<script-ext> (required, alias: --module)")
	flag.StringVar(module, "module", "", "Directory containing main.<script-ext> (required)")
	port := flag.Int("p", 0, "TCP listen port (required, alias: --port)")
	flag.IntVar(port, "port", 0, "TCP listen port (required)")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous clients (0 = unlimited)")
	idleBackoff := flag.Duration("tick-interval", 2*time.Millisecond, "Sleep applied when a loop iteration did nothing")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Bonjour advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default lurkd-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.module = *module
	cfg.port = *port
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.maxClients = *maxClients
	cfg.idleBackoff = *idleBackoff
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

// validate performs basic semantic validation of the parsed
// configuration. It does not attempt to load the script or bind the
// listener — only checks values/ranges.
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
	if c.module == "" {
		return errors.New("-module is required")
	}
	if c.port <= 0 || c.port > 65535 {
		return fmt.Errorf("-port must be in 1..65535 (got %d)", c.port)
	}
	if c.maxClients < 0 {
		return errors.New("max-clients must be >= 0")
	}
	if c.idleBackoff <= 0 {
		return errors.New("tick-interval must be > 0")
	}
	return nil
}

// applyEnvOverrides maps LURKD_* environment variables to config fields
// unless the corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["m"]; !ok {
		if _, ok := set["module"]; !ok {
			if v, ok := get("LURKD_MODULE"); ok && v != "" {
				c.module = v
			}
		}
	}
	if _, ok := set["p"]; !ok {
		if _, ok := set["port"]; !ok {
			if v, ok := get("LURKD_PORT"); ok && v != "" {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					c.port = n
				} else if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("invalid LURKD_PORT: %w", err)
				}
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("LURKD_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("LURKD_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("LURKD_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("LURKD_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LURKD_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["tick-interval"]; !ok {
		if v, ok := get("LURKD_TICK_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.idleBackoff = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LURKD_TICK_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("LURKD_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("LURKD_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
