package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
	"github.com/Brownie44l1/hanzi-api/internal/config"
	"github.com/Brownie44l1/hanzi-api/internal/container"
	"github.com/Brownie44l1/hanzi-api/internal/logging"
)

var (
	configFile string
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "hanzi-api",
	Short: "Top-5 character classification for local image files",
	Long: `hanzi-api loads a classification model and two label mappings once at
startup and classifies images by local file path, over HTTP (serve) or
from the command line (predict).`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml if present)")
	flags.String("device", "", "compute device: auto, cpu, cuda or cuda:N")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("model", "", "path to the ONNX weights")

	mustBind("model.device", "device")
	mustBind("log.level", "log-level")
	mustBind("model.path", "model")

	rootCmd.AddCommand(serveCmd, predictCmd)
}

func mustBind(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// bootstrap loads configuration, builds the logger and the service graph.
// Any failure here is fatal: the process never runs half-initialised.
func bootstrap() (*container.Container, *logging.LogrusAdapter) {
	cfg, err := config.LoadWith(v, configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	c, err := container.New(cfg, logger)
	if err != nil {
		kind := apperror.KindOf(err)
		msg := "initialization failed"
		if kind.Fatal() {
			msg = "startup resource unavailable"
		}
		logger.WithError(err).Fatal(msg, logging.F(logging.FieldKind, kind.String()))
	}
	return c, logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
