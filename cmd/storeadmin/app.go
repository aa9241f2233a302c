package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/GoCodeAlone/storeadmin/action"
	"github.com/GoCodeAlone/storeadmin/asset"
	"github.com/GoCodeAlone/storeadmin/cleanup"
	"github.com/GoCodeAlone/storeadmin/config"
	"github.com/GoCodeAlone/storeadmin/dataview"
	"github.com/GoCodeAlone/storeadmin/metrics"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/observability/tracing"
	"github.com/GoCodeAlone/storeadmin/resource"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracing *tracing.Provider
	client  *resource.Client
	assets  asset.Remover
	sweeper *cleanup.Sweeper
	notes   *notify.Recorder
	deps    dataview.Deps

	closers []func(context.Context) error
}

// appOptions tune newApp per command.
type appOptions struct {
	// interactive discards logs unless a log file is configured.
	interactive bool
	// notifier also receives every notification.
	notifier notify.Sink
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, notes: notify.NewRecorder(0)}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.logger, err = a.buildLogger(opts.interactive); err != nil {
		return nil, err
	}
	a.metrics = metrics.New()
	if err := a.serveMetrics(); err != nil {
		return nil, err
	}

	a.tracing, err = tracing.NewProvider(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Insecure:       true,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.tracing.Shutdown)

	token, err := apiToken(cfg.API)
	if err != nil {
		return nil, err
	}
	a.client, err = resource.New(resource.Options{
		BaseURL:           cfg.API.BaseURL,
		Token:             token,
		Timeout:           cfg.API.Timeout.Std(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		UserAgent:         "storeadmin/" + version,
		HTTPClient:        &http.Client{Transport: tracing.Transport(nil)},
		Logger:            a.logger,
		Metrics:           a.metrics,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Assets.Driver {
	case "s3":
		s3r, err := asset.NewS3(ctx, asset.S3Config{
			Region:          cfg.Assets.S3.Region,
			Bucket:          cfg.Assets.S3.Bucket,
			Prefix:          cfg.Assets.S3.Prefix,
			Endpoint:        cfg.Assets.S3.Endpoint,
			AccessKeyID:     cfg.Assets.S3.AccessKeyID,
			SecretAccessKey: cfg.Assets.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		a.assets = s3r
	default:
		a.assets = asset.NewHTTPRemover(a.client)
	}

	ledger, closer, err := cleanup.FromConfig(cfg.Cleanup)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
	a.sweeper = cleanup.NewSweeper(ledger, a.assets,
		cleanup.WithConcurrency(cfg.Cleanup.Concurrency),
		cleanup.WithLogger(a.logger),
		cleanup.WithMetrics(a.metrics),
	)

	sinks := notify.Multi{notify.NewLogSink(a.logger), a.notes}
	if opts.notifier != nil {
		sinks = append(sinks, opts.notifier)
	}
	a.deps = dataview.Deps{
		Client:   a.client,
		Assets:   a.assets,
		Sweeper:  a.sweeper,
		Notifier: sinks,
		Tracer:   tracing.NewActionTracer(a.tracing.Tracer()),
		Metrics:  a.metrics,
		Logger:   a.logger,
		PageSize: cfg.Table.PageSize,
	}
	return a, nil
}

// keyringUser is the keyring account under which the API token is stored.
const keyringUser = "token"

func apiToken(cfg config.APIConfig) (string, error) {
	if cfg.Token != "" || cfg.TokenKeyring == "" {
		return cfg.Token, nil
	}
	token, err := keyring.Get(cfg.TokenKeyring, keyringUser)
	if err != nil {
		return "", fmt.Errorf("read api token from keyring %q: %w", cfg.TokenKeyring, err)
	}
	return token, nil
}

// paneDeps returns the pane collaborators with clip as the clipboard.
func (a *app) paneDeps(clip action.Clipboard) dataview.Deps {
	d := a.deps
	d.Clipboard = clip
	return d
}

// openPane opens kind scoped to store.
func (a *app) openPane(kind, store string) (dataview.Pane, error) {
	p, err := dataview.Open(kind, a.deps)
	if err != nil {
		return nil, err
	}
	if store != "" {
		p.SetScope(store)
	}
	return p, nil
}

func (a *app) buildLogger(interactive bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("%w: log.level %q", config.ErrInvalid, a.cfg.Log.Level)
	}

	var out io.Writer = os.Stderr
	switch {
	case a.cfg.Log.File != "":
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return f.Close() })
		out = f
	case interactive:
		out = io.Discard
	}

	hopts := &slog.HandlerOptions{Level: level}
	if a.cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(out, hopts)), nil
}

func (a *app) serveMetrics() error {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "addr", ln.Addr().String())
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("Shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
