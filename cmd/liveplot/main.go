package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sliink/liveplot/internal/core"
	"github.com/sliink/liveplot/internal/store"
	"github.com/sliink/liveplot/internal/store/memstore"
	"github.com/sliink/liveplot/internal/store/redisstore"
)

// options holds the flags shared by every subcommand
type options struct {
	configFile    string
	logLevel      string
	logFormat     string
	storeDriver   string
	redisAddr     string
	redisDB       int
	redisPassword string

	config *core.ConfigManager
	level  slog.LevelVar
	cmd    *cobra.Command
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "liveplot",
		Short:         "liveplot - draw plots from stored lists and keep them live",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to configuration file (yaml or json)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	flags.StringVar(&opts.storeDriver, "store", "redis", "Store backend: redis or memory")
	flags.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "Redis address")
	flags.IntVar(&opts.redisDB, "redis-db", 0, "Redis database")
	flags.StringVar(&opts.redisPassword, "redis-password", "", "Redis password")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newDrawCmd(opts),
		newBindCmd(opts),
		newPushCmd(opts),
	)
	return rootCmd
}

// load reads the configuration file, lets explicit flags override it and
// installs the default logger. Flags left at their defaults never shadow
// the file.
func (o *options) load(cmd *cobra.Command) error {
	o.cmd = cmd
	o.config = core.NewConfigManager()
	if o.configFile != "" {
		if err := o.config.LoadConfig(o.configFile); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
	}
	o.applyOverrides()

	settings, err := o.config.Settings()
	if err != nil {
		return err
	}
	level, err := parseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	o.level.Set(level)
	logger, err := newLogger(cmd.ErrOrStderr(), &o.level, settings.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	o.config.WatchConfig("log.level", o.applyLevel)
	return nil
}

// applyOverrides writes every explicitly set flag over the configuration
func (o *options) applyOverrides() {
	cmd := o.cmd
	overrides := map[string]string{
		"log-level":      "log.level",
		"log-format":     "log.format",
		"store":          "store.driver",
		"redis-addr":     "store.redis.addr",
		"redis-password": "store.redis.password",
	}
	for flag, path := range overrides {
		if cmd.Flags().Changed(flag) {
			value, _ := cmd.Flags().GetString(flag)
			o.config.SetConfig(path, value)
		}
	}
	if cmd.Flags().Changed("redis-db") {
		o.config.SetConfig("store.redis.db", o.redisDB)
	}
}

// applyLevel follows log.level changes. It reads the current value rather
// than the notified one, as notifications may arrive out of order.
func (o *options) applyLevel(interface{}) {
	level, err := parseLevel(o.config.GetString("log.level", "info"))
	if err != nil {
		slog.Warn("ignoring log level", "error", err)
		return
	}
	if o.level.Level() != level {
		o.level.Set(level)
		slog.Info("log level changed", "level", level)
	}
}

// reload re-reads the configuration file. Explicit flags keep precedence.
// Only the log level takes effect without a restart.
func (o *options) reload() error {
	if err := o.config.Reload(); err != nil {
		return err
	}
	o.applyOverrides()
	_, err := o.config.Settings()
	return err
}

func (o *options) settings() (core.Settings, error) {
	return o.config.Settings()
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Leveler, format string) (*slog.Logger, error) {
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// openStore connects the configured backend
func openStore(ctx context.Context, settings core.Settings) (store.Store, error) {
	switch settings.StoreDriver {
	case "memory":
		return memstore.New(), nil
	case "redis":
		st := redisstore.New(redisstore.Options{
			Addr:                   settings.RedisAddr,
			Password:               settings.RedisPassword,
			DB:                     settings.RedisDB,
			ConfigureNotifications: settings.ConfigureNotifications,
		})
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", settings.RedisAddr, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", settings.StoreDriver)
	}
}

// newCore builds a core over st whose configuration mirrors the loaded one
func (o *options) newCore(st store.Store, surfaces core.SurfaceFactory) (*core.Core, error) {
	c := core.NewCore(st, surfaces)
	if root, ok := o.config.GetConfig("", nil).(map[string]interface{}); ok {
		if err := c.GetConfigManager().SetConfig("", root); err != nil {
			return nil, err
		}
	}
	if !c.Initialize() {
		return nil, fmt.Errorf("failed to initialize core system")
	}
	return c, nil
}
