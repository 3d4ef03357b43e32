package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/bufr-resolve/pkg/api"
	grpcapi "github.com/lemonberrylabs/bufr-resolve/pkg/api/grpc"
	"github.com/lemonberrylabs/bufr-resolve/web"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	host      string
	port      int
	grpcPort  int
	accessLog bool
}

func newServeCmd(errOut io.Writer, o *options) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over REST, gRPC and a web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(newLogger(o.logLevel, o.logFormat, errOut), o, so)
		},
	}

	cmd.Flags().IntVar(&so.port, "port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().IntVar(&so.grpcPort, "grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().StringVar(&so.host, "host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().BoolVar(&so.accessLog, "access-log", true, "log every HTTP request")
	return cmd
}

// listenAddrs resolves the HTTP and gRPC addresses: flags win over the
// environment, which wins over the defaults.
func (so *serveOptions) listenAddrs() (string, string) {
	port := envOrDefault("PORT", "8787")
	if so.port != 0 {
		port = fmt.Sprintf("%d", so.port)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if so.grpcPort != 0 {
		grpcPort = fmt.Sprintf("%d", so.grpcPort)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if so.host != "" {
		host = so.host
	}

	return fmt.Sprintf("%s:%s", host, port), fmt.Sprintf("%s:%s", host, grpcPort)
}

func serve(logger *slog.Logger, o *options, so *serveOptions) error {
	svc, err := loadService(o, logger)
	if err != nil {
		return err
	}
	addr, grpcAddr := so.listenAddrs()

	server := api.New(svc, api.Options{AccessLog: so.accessLog})

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("web UI disabled due to template error", "error", r)
			}
		}()
		web.New(svc).Register(server.App())
	}()

	grpcServer := grpcapi.New(svc)
	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			logger.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	cfg := svc.Config()
	logger.Info("bufr-resolve listening",
		"addr", addr,
		"root", cfg.DefinitionPath,
		"wmo_table", cfg.WMOTableNumber)
	return server.Listen(addr)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
