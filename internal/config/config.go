// Package config loads server configuration from, in increasing order
// of precedence: compiled-in defaults, a .env file, environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of tunables the server needs to
// start: the listen endpoint, transport limits, and observability
// sinks.
type Config struct {
	ListenAddr          string
	MaxClients          int
	ClientTimeoutMS     int
	HeartbeatIntervalMS int
	OutboundQueue       int
	MaxPayloadBytes     int
	MetricsAddr         string
	LogLevel            string
	LogFile             string
}

const envPrefix = "OTSYNC"

// flagDefault pairs a flag's dash-cased name (also used as its viper key,
// so OTSYNC_LISTEN_ADDR resolves to the same setting as --listen-addr)
// with its compiled-in default and help text.
type flagDefault struct {
	name    string
	usage   string
	isInt   bool
	strVal  string
	intVal  int
}

// flagDefaults mirrors spec.md §6's compile-time defaults.
var flagDefaults = []flagDefault{
	{name: "listen-addr", usage: "TCP listen address for the OT protocol", strVal: "127.0.0.1:8000"},
	{name: "max-clients", usage: "maximum number of concurrent client connections", isInt: true, intVal: 100},
	{name: "client-timeout-ms", usage: "idle time before a client is evicted by the heartbeat monitor", isInt: true, intVal: 30000},
	{name: "heartbeat-interval-ms", usage: "interval between heartbeat ticks", isInt: true, intVal: 10000},
	{name: "outbound-queue", usage: "per-client outbound frame queue capacity", isInt: true, intVal: 32},
	{name: "max-payload-bytes", usage: "maximum accepted frame payload size", isInt: true, intVal: 1048576},
	{name: "metrics-addr", usage: "listen address for the Prometheus /metrics endpoint", strVal: "127.0.0.1:9090"},
	{name: "log-level", usage: "log level: debug, info, warn, error", strVal: "info"},
	{name: "log-file", usage: "optional rotated JSON log file path", strVal: ""},
}

// BindFlags registers the server's flags on fs under the names Load
// reads back via viper, so flags bound here take precedence over
// environment variables and .env/default values once set.
func BindFlags(fs *pflag.FlagSet) {
	for _, d := range flagDefaults {
		if d.isInt {
			fs.Int(d.name, d.intVal, d.usage)
		} else {
			fs.String(d.name, d.strVal, d.usage)
		}
	}
}

// Load resolves configuration from defaults, an optional .env file,
// environment variables prefixed OTSYNC_, and flags already parsed onto
// fs (bound by BindFlags before this is called). envFile may be empty,
// in which case a missing .env is silently ignored — the way
// godotenv.Load is conventionally used for local-only convenience.
func Load(fs *pflag.FlagSet, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading env file %q: %w", envFile, err)
		}
	} else {
		// Best-effort: a development .env in the working directory, but
		// its absence is not an error.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, d := range flagDefaults {
		if d.isInt {
			v.SetDefault(d.name, d.intVal)
		} else {
			v.SetDefault(d.name, d.strVal)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("binding flags: %w", err)
		}
	}

	return Config{
		ListenAddr:          v.GetString("listen-addr"),
		MaxClients:          v.GetInt("max-clients"),
		ClientTimeoutMS:     v.GetInt("client-timeout-ms"),
		HeartbeatIntervalMS: v.GetInt("heartbeat-interval-ms"),
		OutboundQueue:       v.GetInt("outbound-queue"),
		MaxPayloadBytes:     v.GetInt("max-payload-bytes"),
		MetricsAddr:         v.GetString("metrics-addr"),
		LogLevel:            v.GetString("log-level"),
		LogFile:             v.GetString("log-file"),
	}, nil
}
