package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"legal-explainer/internal/config"
)

const configFilePath = "./configs/config.yaml"

// appConfig is loaded once by the root command before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:           "legal-explainer",
	Short:         "Explains legal PDF documents in plain Portuguese using Gemini.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// a missing .env is fine
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr := viper.GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if level := viper.GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}

		// explain may print JSON on stdout
		out := io.Writer(os.Stdout)
		if cmd.Name() == explainCmd.Name() {
			out = os.Stderr
		}
		if err := setupLogger(cfg.Log.Level, out); err != nil {
			return err
		}

		log.Debug().Interface("config", redacted(cfg)).Msg("Loaded config")
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", configFilePath, "path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("addr", "", "HTTP listen address, overrides server.addr")

	for _, name := range []string{"config", "log-level", "addr"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("legal_explainer")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, explainCmd)
}

// loadConfig reads the configured file. The default path may be absent, in
// which case only defaults and the environment apply.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == configFilePath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "error loading config")
	}
	return cfg, nil
}

func setupLogger(level string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Caller().Logger()
	return nil
}

// redacted returns a copy of cfg that is safe to log.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "***"
	}
	return c
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
