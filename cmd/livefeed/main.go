package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/vovakirdan/livefeed-go/internal/logging"
	"github.com/vovakirdan/livefeed-go/livefeed"
	"github.com/vovakirdan/livefeed-go/livefeed/rest"
)

func main() {
	app := &cli.App{
		Name:  "livefeed",
		Usage: "terminal client for the livefeed real-time feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML client config",
				EnvVars: []string{"LIVEFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "ws-url",
				Usage:   "feed channel websocket URL (overrides config)",
				EnvVars: []string{"LIVEFEED_WS_URL"},
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "base URL of the session, auth and upload services",
				Value:   "http://127.0.0.1:8000",
				EnvVars: []string{"LIVEFEED_API_URL"},
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
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Required: true},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"LIVEFEED_PASSWORD"}},
				},
				Action: runSignup,
			},
			{
				Name:  "run",
				Usage: "show the feed and post every line read from stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Usage: "log in as this author before connecting", EnvVars: []string{"LIVEFEED_AUTHOR"}},
					&cli.StringFlag{Name: "password", EnvVars: []string{"LIVEFEED_PASSWORD"}},
					&cli.StringFlag{Name: "image", Usage: "image file attached to the first post"},
					&cli.StringFlag{Name: "html-out", Usage: "write the rendered feed as HTML to this file on exit"},
					&cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address"},
				},
				Action: runFeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("exiting process", "error", err)
		os.Exit(1)
	}
}

func newLogger(cctx *cli.Context) *slog.Logger {
	return logging.New(cctx.String("log-level"), cctx.Bool("log-json")).With("instance", uuid.NewString())
}

func runSignup(cctx *cli.Context) error {
	logger := newLogger(cctx)
	api := rest.NewClientWithLogger(cctx.String("api-url"), logger)

	resp, err := api.Signup(cctx.Context, rest.SignupRequest{
		Author:   cctx.String("author"),
		Email:    cctx.String("email"),
		Password: cctx.String("password"),
	})
	if err != nil {
		return err
	}
	logger.Info("signup successful", "author", cctx.String("author"), "detail", resp.Detail)
	return nil
}

func loadConfig(cctx *cli.Context) (livefeed.Config, error) {
	cfg := livefeed.DefaultConfig()
	if path := cctx.String("config"); path != "" {
		var err error
		if cfg, err = livefeed.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if u := cctx.String("ws-url"); u != "" {
		cfg.URL = u
	}
	if cfg.URL == "" {
		cfg.URL = "ws://127.0.0.1:8000/ws"
	}
	return cfg, cfg.Validate()
}

// views fans one entry out to several views.
type views []livefeed.View

func (vs views) Prepend(e livefeed.Entry) {
	for _, v := range vs {
		v.Prepend(e)
	}
}

func (vs views) SetCapacity(n int) {
	for _, v := range vs {
		if bv, ok := v.(interface{ SetCapacity(int) }); ok {
			bv.SetCapacity(n)
		}
	}
}

func (vs views) SetLogger(l livefeed.Logger) {
	for _, v := range vs {
		if lv, ok := v.(interface{ SetLogger(livefeed.Logger) }); ok {
			lv.SetLogger(l)
		}
	}
}

func runFeed(cctx *cli.Context) error {
	logger := newLogger(cctx)

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}

	api := rest.NewClientWithLogger(cctx.String("api-url"), logger)
	if author := cctx.String("author"); author != "" {
		if _, err := api.Login(ctx, rest.LoginRequest{Author: author, Password: cctx.String("password")}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}
	session := livefeed.RESTSession{Client: api}
	if author, err := session.Author(ctx); err != nil {
		logger.Warn("not authenticated, posting is disabled until login", "error", err)
	} else {
		logger.Info("authenticated", "author", author)
	}

	vs := views{livefeed.NewTextView(os.Stdout)}
	var htmlView *livefeed.HTMLView
	if cctx.String("html-out") != "" {
		if htmlView, err = livefeed.NewHTMLView(cctx.String("api-url")); err != nil {
			return err
		}
		vs = append(vs, htmlView)
	}

	client, err := livefeed.NewClient(cfg, vs, session, livefeed.RESTUploader{Client: api})
	if err != nil {
		return err
	}
	client.SetLogger(livefeed.NewSlogLogger(logger.With("component", "livefeed")))
	client.Manager.OnStateChange(func(ev livefeed.StateEvent) {
		logger.Debug("channel state changed", "from", ev.OldState, "to", ev.NewState, "cause", ev.Error)
	})

	if addr := cctx.String("metrics-addr"); addr != "" {
		go serveMetrics(logger, addr)
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	image := cctx.String("image")
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if err := postLine(ctx, client, line, image); err != nil {
				logger.Error("post failed", "error", err)
				continue
			}
			image = ""
		}
	}

	if htmlView != nil {
		if err := os.WriteFile(cctx.String("html-out"), []byte(htmlView.HTML()), 0o644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}
	return nil
}

func postLine(ctx context.Context, client *livefeed.Client, line, imagePath string) error {
	var img *livefeed.Image
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		img = &livefeed.Image{Name: filepath.Base(imagePath), Data: f}
	}

	_, err := client.Post(ctx, line, img)
	if errors.Is(err, livefeed.ErrEmptyContent) {
		return nil
	}
	return err
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}
