package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/vovakirdan/livefeed-go/internal/logging"
	"github.com/vovakirdan/livefeed-go/relay"
)

func main() {
	app := &cli.App{
		Name:  "feedrelay",
		Usage: "broadcast relay for the livefeed channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "address to listen on",
				Value:   ":8000",
				EnvVars: []string{"FEEDRELAY_LISTEN"},
			},
			&cli.Float64Flag{
				Name:    "rate",
				Usage:   "inbound frames per second allowed per client (0 disables)",
				Value:   relay.DefaultOptions().RatePerSecond,
				EnvVars: []string{"FEEDRELAY_RATE"},
			},
			&cli.IntFlag{
				Name:    "burst",
				Usage:   "inbound burst allowed per client",
				Value:   relay.DefaultOptions().Burst,
				EnvVars: []string{"FEEDRELAY_BURST"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "emit JSON logs",
				EnvVars: []string{"LOG_JSON"},
			},
		},
		Action: runRelay,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("exiting process", "error", err)
		os.Exit(1)
	}
}

func runRelay(cctx *cli.Context) error {
	logger := logging.New(cctx.String("log-level"), cctx.Bool("log-json"))

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := relay.DefaultOptions()
	opts.RatePerSecond = cctx.Float64("rate")
	opts.Burst = cctx.Int("burst")
	srv := relay.NewServer(logger, opts)

	httpSrv := &http.Server{
		Addr:              cctx.String("listen"),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Hub().DisconnectAll()
	return httpSrv.Shutdown(shutdownCtx)
}
