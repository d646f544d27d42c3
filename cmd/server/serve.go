package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hanzi-api/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /predict over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port and PORT)")
	if err := v.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	c, logger := bootstrap()
	defer c.Close()

	cfg := c.Config()
	errorLog := logger.Writer()
	defer errorLog.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      c.Handler().Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     log.New(errorLog, "", 0),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", logging.F(logging.FieldAddress, srv.Addr))
		logger.Info("endpoints: GET /health, POST /predict (form field file_path)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			logger.WithError(err).Error("server failed")
			return err
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", logging.F("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return err
	}
	logger.Info("server stopped")
	return nil
}
