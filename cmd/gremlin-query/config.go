package main

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Config holds all runtime configuration derived from flags.
type Config struct {
	URL             string
	Script          string
	Bindings        bindingFlags
	Source          string
	Mime            string
	Username        string
	Password        string
	Insecure        bool
	HeartbeatOff    bool
	HeartbeatEvery  time.Duration
	HeartbeatWithin time.Duration
	ReconnectOff    bool
	Timeout         time.Duration
	Repeat          int
	Interval        time.Duration
	CacheTTL        time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	MetricsAddr     string
	Debug           bool
}

// bindingFlags collects repeated -binding key=value pairs.
type bindingFlags map[string]string

func (b bindingFlags) String() string { return fmt.Sprintf("%v", map[string]string(b)) }

func (b bindingFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("binding must be key=value, got %q", v)
	}
	b[key] = value
	return nil
}

var cfg = Config{Bindings: bindingFlags{}}

// init registers all flags into the default flag set; main parses and uses cfg.
func init() {
	flag.StringVar(&cfg.URL, "url", "ws://127.0.0.1:8182/gremlin", "server websocket endpoint")
	flag.StringVar(&cfg.Script, "script", "g.V().limit(10)", "gremlin script to evaluate")
	flag.Var(cfg.Bindings, "binding", "script binding as key=value (repeatable)")
	flag.StringVar(&cfg.Source, "source", "g", "traversal source alias")
	flag.StringVar(&cfg.Mime, "mime", "", "content type (default GraphSON 3.0)")
	flag.StringVar(&cfg.Username, "user", "", "username for SASL PLAIN authentication")
	flag.StringVar(&cfg.Password, "pass", "", "password for SASL PLAIN authentication")
	flag.BoolVar(&cfg.Insecure, "insecure", false, "skip TLS certificate verification (wss only)")
	flag.BoolVar(&cfg.HeartbeatOff, "no-heartbeat", false, "disable liveness probing")
	flag.DurationVar(&cfg.HeartbeatEvery, "heartbeat-interval", 0, "probe interval (default 60s)")
	flag.DurationVar(&cfg.HeartbeatWithin, "heartbeat-deadline", 0, "probe ack deadline (default 30s)")
	flag.BoolVar(&cfg.ReconnectOff, "no-reconnect", false, "disable automatic reconnection")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "per-request timeout")
	flag.IntVar(&cfg.Repeat, "repeat", 1, "number of times to run the script (0 = forever)")
	flag.DurationVar(&cfg.Interval, "interval", time.Second, "pause between repeated runs")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", 0, "serve repeated runs from the result cache for this long (0 = off)")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address for a shared result cache (empty = in-memory)")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number")
	flag.StringVar(&cfg.MetricsAddr, "metrics", "", "metrics and health listen address (empty = disabled)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logs")
}
