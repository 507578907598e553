package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sliink/liveplot/internal/api"
	"github.com/sliink/liveplot/internal/surface"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var (
		apiEnabled bool
		apiHost    string
		apiPort    int
		outputDir  string
		mqttBroker string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatcher and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("api") {
				opts.config.SetConfig("api.enabled", apiEnabled)
			}
			if cmd.Flags().Changed("api-host") {
				opts.config.SetConfig("api.host", apiHost)
			}
			if cmd.Flags().Changed("api-port") {
				opts.config.SetConfig("api.port", apiPort)
			}
			if cmd.Flags().Changed("output-dir") {
				opts.config.SetConfig("surfaces.output_dir", outputDir)
			}
			if cmd.Flags().Changed("mqtt-broker") {
				opts.config.SetConfig("surfaces.mqtt.broker", mqttBroker)
			}
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&apiEnabled, "api", true, "Enable the API server")
	cmd.Flags().StringVar(&apiHost, "api-host", "127.0.0.1", "API server host")
	cmd.Flags().IntVar(&apiPort, "api-port", 8080, "API server port")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory for file: targets")
	cmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL enabling mqtt: targets")
	return cmd
}

func serve(parent context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := opts.settings()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer st.Close()

	board := surface.NewFrameBoard()
	surfaceOpts := surface.Options{
		Board:     board,
		Writer:    st,
		OutputDir: settings.OutputDir,
		MQTTOptions: surface.MQTTOptions{
			QoS:      byte(settings.MQTTQoS),
			Retained: settings.MQTTRetained,
		},
	}
	if settings.MQTTBroker != "" {
		client, err := surface.ConnectMQTT(settings.MQTTBroker, settings.MQTTClientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		surfaceOpts.MQTT = client
	}

	factory := surface.NewStandardFactory(surfaceOpts)
	c, err := opts.newCore(st, factory)
	if err != nil {
		return err
	}
	if !c.Start() {
		c.Stop()
		return fmt.Errorf("failed to start core system")
	}
	slog.Info("liveplot is running",
		"store", settings.StoreDriver,
		"surfaces", factory.Schemes())

	var server apiServer
	if settings.APIEnabled {
		server = api.NewAPI(c, board, settings.APIHost, settings.APIPort)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	if err := supervise(ctx, c, server, hup, opts.reload); err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

// runner is the part of the core that serve supervises
type runner interface {
	Done() <-chan struct{}
	Stop() bool
}

type apiServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// supervise runs until ctx is cancelled or the core stops, then shuts the
// API and the core down. A value on reload re-reads the configuration.
func supervise(ctx context.Context, c runner, server apiServer, reload <-chan os.Signal, onReload func() error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if server != nil {
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Stop(shutdownCtx)
		})
	}

	g.Go(func() error {
	loop:
		for {
			select {
			case <-gctx.Done():
				break loop
			case <-c.Done():
				slog.Warn("core stopped")
				cancel()
				break loop
			case <-reload:
				if err := onReload(); err != nil {
					slog.Error("failed to reload configuration", "error", err)
				} else {
					slog.Info("configuration reloaded")
				}
			}
		}

		slog.Info("shutting down")
		if !c.Stop() {
			return fmt.Errorf("failed to stop core system cleanly")
		}
		return nil
	})

	return g.Wait()
}
