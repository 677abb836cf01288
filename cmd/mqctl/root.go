// File: cmd/mqctl/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
	"github.com/momentics/hioload-mq/socket"
)

// app is the state shared by all subcommands, built in PersistentPreRunE.
type app struct {
	cfgFile   string
	logLevel  string
	transport string

	cfg     *control.Config
	logger  *zap.Logger
	metrics *control.Metrics
	ctx     *socket.Context
	srv     *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mqctl",
		Short:         "Drive hioload-mq sockets from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVarP(&a.transport, "transport", "t", "", "transport override (inproc, zmq)")

	root.AddCommand(
		newPushCmd(a),
		newPullCmd(a),
		newWatchCmd(a),
		newHWServerCmd(a),
		newHWClientCmd(a),
		newWUServerCmd(a),
		newWUClientCmd(a),
		newDemoCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := control.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.transport != "" {
		cfg.Transport = a.transport
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = control.NewLogger(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		if a.metrics, err = control.NewMetrics(reg, cfg.Metrics.Namespace); err != nil {
			return err
		}
		if cfg.Metrics.Listen != "" {
			a.serveMetrics(reg, cfg.Metrics.Listen)
		}
	}

	newTransport, ok := transports[cfg.Transport]
	if !ok {
		return fmt.Errorf("%w: transport %q not available in this build", api.ErrNotSupported, cfg.Transport)
	}
	a.ctx, err = socket.NewContext(newTransport(),
		socket.WithLogger(a.logger),
		socket.WithMetrics(a.metrics),
		socket.WithDefaultRecvTimeout(cfg.RecvTimeout.Duration()),
	)
	if err != nil {
		return err
	}
	a.logger.Debug("context ready", zap.String("transport", cfg.Transport), zap.Uintptr("handle", a.ctx.Handle()))
	return nil
}

func (a *app) serveMetrics(reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))
}

func (a *app) teardown() error {
	var err error
	if a.ctx != nil {
		err = a.ctx.Term()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

// open creates a socket on the command context with the configured linger.
func (a *app) open(kind api.SocketType) (*socket.Socket, error) {
	s, err := socket.Open(kind, socket.WithContext(a.ctx))
	if err != nil {
		return nil, err
	}
	if !s.SetOption(api.Linger, a.cfg.Linger) {
		a.logger.Warn("linger not applied", zap.Stringer("kind", kind))
	}
	return s, nil
}
