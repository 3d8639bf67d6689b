package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/ising-core/internal/isingd"
	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		httpAddr    string
		grpcAddr    string
		archivePath  string
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run sweeps on demand over HTTP, with a gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			srvCfg := cfg.ServerOrDefault()
			if cmd.Flags().Changed("http-addr") {
				srvCfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				srvCfg.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("archive") {
				srvCfg.ArchivePath = archivePath
			}
			return serve(cmd.Context(), srvCfg, artifactsDir)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default :8080)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC health listen address (default :50051)")
	cmd.Flags().StringVar(&archivePath, "archive", "", "SQLite file for finished traces, empty disables")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "also write each run's CSV traces under this directory")
	return cmd
}

func serve(ctx context.Context, srvCfg config.Server, artifactsDir string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	httpAddr, grpcAddr, archivePath := srvCfg.HTTPAddr, srvCfg.GRPCAddr, srvCfg.ArchivePath

	store := isingd.NewRunStore()
	executor := isingd.NewRunExecutor(store)
	if artifactsDir != "" {
		executor.SetArtifactsDir(artifactsDir)
	}

	if archivePath != "" {
		archive, err := isingd.OpenArchive(archivePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Error("failed to close archive", "error", err)
			}
		}()
		executor.SetArchive(archive)
		logger.Info("trace archive enabled", "path", archivePath)
	}

	// TODO: Configure gRPC server security (e.g., TLS, authentication)
	// before exposing the daemon beyond localhost.
	grpcServer := isingd.NewGRPCServer()
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", grpcAddr, "error", err)
		return err
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           isingd.NewHTTPServer(store, executor).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			errCh <- err
			stop()
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	grpcServer.SetDraining()
	executor.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
