package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matst80/gremlink/cache"
	"github.com/matst80/gremlink/driver"
	"github.com/matst80/gremlink/internal/obs"
)

func main() {
	flag.Parse()
	if cfg.Debug {
		obs.EnableDebug(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go startMetricsServer(cfg.MetricsAddr)
	}

	dcfg := &driver.Config{
		URL:               cfg.URL,
		MimeType:          cfg.Mime,
		TraversalSource:   cfg.Source,
		DisableHeartbeat:  cfg.HeartbeatOff,
		HeartbeatInterval: cfg.HeartbeatEvery,
		HeartbeatDeadline: cfg.HeartbeatWithin,
		DisableReconnect:  cfg.ReconnectOff,
	}
	if cfg.Insecure {
		dcfg.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.Username != "" {
		dcfg.Authenticator = &driver.PlainTextAuthenticator{Username: cfg.Username, Password: cfg.Password}
	}

	client, err := driver.NewClient(dcfg)
	if err != nil {
		obs.Error("client.open", obs.Fields{"url": cfg.URL, "err": err.Error()})
		os.Exit(1)
	}
	defer client.Close()

	if cfg.CacheTTL > 0 {
		store, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			obs.Error("cache.open", obs.Fields{"err": err.Error()})
			os.Exit(1)
		}
		defer store.Close()
		client.WithCache(store, cfg.CacheTTL)
	}

	bindings := make(map[string]any, len(cfg.Bindings))
	for k, v := range cfg.Bindings {
		bindings[k] = v
	}

	enc := json.NewEncoder(os.Stdout)
	for run := 0; cfg.Repeat == 0 || run < cfg.Repeat; run++ {
		if run > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.Interval):
			}
		}
		if err := runOnce(ctx, client, bindings, enc); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			obs.Error("query.fail", obs.Fields{"err": err.Error()})
			os.Exit(1)
		}
	}
}

func runOnce(ctx context.Context, client *driver.Client, bindings map[string]any, enc *json.Encoder) error {
	rctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	start := time.Now()
	values, err := client.Submit(rctx, cfg.Script, bindings)
	if err != nil {
		return err
	}
	obs.Debug("query.done", obs.Fields{"results": len(values), "took": time.Since(start).String()})
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// startMetricsServer serves Prometheus metrics and a simple health endpoint.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		obs.Error("metrics.server", obs.Fields{"err": err.Error(), "addr": addr})
	}
}
