package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wikisync/wikisync/internal/client"
	"github.com/wikisync/wikisync/internal/client/config"
	"github.com/wikisync/wikisync/internal/utils"
	"github.com/wikisync/wikisync/internal/version"
)

var (
	home, _         = os.UserHomeDir()
	defaultWatchDir = filepath.Join(home, "WikiSync")
	configFileName  = "config"
)

var rootCmd = &cobra.Command{
	Use:     "wikisync",
	Short:   "Mirror a local directory with a remote wiki space",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:           viper.ConfigFileUsed(),
			WatchDir:       viper.GetString("watch_dir"),
			ServerURL:      viper.GetString("server_url"),
			Token:          viper.GetString("token"),
			SpaceID:        viper.GetString("space_id"),
			PollIntervalMs: viper.GetInt("poll_interval_ms"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// config is good, errors past this point are runtime failures
		cmd.SilenceUsage = true
		showHeader()

		daemon, err := client.NewDaemon(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return daemon.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("watch-dir", "w", defaultWatchDir, "Local directory to mirror")
	rootCmd.Flags().StringP("server", "s", "", "Wiki server base URL")
	rootCmd.Flags().String("space", "", "Remote space identifier")
	rootCmd.Flags().String("token", "", "API token")
	rootCmd.Flags().Int("interval", 0, "Reconciliation interval in milliseconds")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Config file")
}

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	logWriter := &lumberjack.Logger{
		Filename:   config.DefaultLogPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	fileHandler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler))
	slog.SetDefault(logger)
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".wikisync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("watch_dir", cmd.Flags().Lookup("watch-dir"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("space_id", cmd.Flags().Lookup("space"))
	viper.BindPFlag("token", cmd.Flags().Lookup("token"))
	viper.BindPFlag("poll_interval_ms", cmd.Flags().Lookup("interval"))

	viper.SetEnvPrefix("WIKISYNC")
	viper.AutomaticEnv()

	return nil
}

func showHeader() {
	color.New(color.FgHiCyan, color.Bold).
		Printf("%s %s\n", version.AppName, version.Short())
}
