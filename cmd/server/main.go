package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solgate/solgate/pkg/config/env"
	"github.com/solgate/solgate/pkg/gateway"
)

const (
	envConfigPrefix = "GATEWAY_"

	listenAddressConfigEnvName = envConfigPrefix + "LISTEN_ADDRESS"
	defaultListenAddress       = ":3000"

	logLevelConfigEnvName = envConfigPrefix + "LOG_LEVEL"
	defaultLogLevel       = "info"

	shutdownTimeoutConfigEnvName = envConfigPrefix + "SHUTDOWN_TIMEOUT"
	defaultShutdownTimeout       = 10 * time.Second

	maxBodySizeConfigEnvName = envConfigPrefix + "MAX_BODY_SIZE_BYTES"
	defaultMaxBodySize       = 1 << 20
)

var osSigCh = make(chan os.Signal, 1)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

func main() {
	ctx := context.Background()

	logger := logrus.StandardLogger().WithField("type", "cmd/server")

	configureLogger(ctx)

	listenAddress := env.NewStringConfig(listenAddressConfigEnvName, defaultListenAddress).Get(ctx)
	shutdownTimeout := env.NewDurationConfig(shutdownTimeoutConfigEnvName, defaultShutdownTimeout).Get(ctx)
	maxBodySize := env.NewUint64Config(maxBodySizeConfigEnvName, defaultMaxBodySize).Get(ctx)

	mux := http.NewServeMux()
	for path, handler := range gateway.NewServer().GetHandlers() {
		mux.HandleFunc(path, handler)
	}

	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           http.MaxBytesHandler(mux, int64(maxBodySize)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.WithField("address", listenAddress).Info("server listening")
		serveErrCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErrCh:
		logger.WithError(err).Error("server terminated unexpectedly")
		os.Exit(1)
	case sig := <-osSigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to shut down gracefully")
	}
}

func configureLogger(ctx context.Context) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logLevel := env.NewStringConfig(logLevelConfigEnvName, defaultLogLevel).Get(ctx)
	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", logLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}
