package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/store-inventory/internal/adapter/handler"
	"github.com/rl1809/store-inventory/internal/app"
	"github.com/rl1809/store-inventory/internal/config"
	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/supervisor"
	"github.com/rl1809/store-inventory/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cliApp := &cli.App{
		Name:  "store-inventory",
		Usage: "per-store product inventory over HTTP and gRPC",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run a single HTTP and gRPC server process",
				Action: serve,
			},
			{
				Name:   "supervise",
				Usage:  "run one server process per worker and restart any that exit",
				Action: supervise,
			},
			{
				Name:  "provision",
				Usage: "create an empty store record for an owner",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: provision,
			},
		},
		Action: serve,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("store-inventory exited")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if id := os.Getenv(supervisor.WorkerIDEnv); id != "" {
		log.Logger = log.With().Str("worker", id).Logger()
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Close(closeCtx)
		log.Info().Msg("Connections closed")
	}()

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Handler:           handler.NewRouter(handler.NewHTTPHandler(a.Service, cfg.RequestTimeout), a.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(handler.UnaryLogging(), handler.UnaryRecovery()))
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(a.Service, cfg.RequestTimeout))

	httpLis, err := listen(ctx, cfg.HTTPAddr)
	if err != nil {
		return err
	}
	grpcLis, err := listen(ctx, cfg.GRPCAddr)
	if err != nil {
		httpLis.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
		log.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info().Msg("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

func supervise(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSupervised(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &supervisor.Supervisor{
		Workers:      cfg.WorkerCount(),
		Spawn:        supervisor.ExecSpawner("serve"),
		RestartDelay: time.Second,
	}
	log.Info().Int("workers", s.Workers).Msg("Starting supervisor")
	return s.Run(ctx)
}

func provision(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Build(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	owner := domain.NewOwner(c.Int64("user-id"), c.String("email"))
	if err := a.Provisioner.Provision(c.Context, owner); err != nil {
		return err
	}
	log.Info().Str("owner", owner.Key()).Msg("Store provisioned")
	return nil
}

func listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := listenConfig()
	return lc.Listen(ctx, "tcp", addr)
}
