package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/livefeed-go/livefeed"
)

// Options tunes per-connection limits.
type Options struct {
	RatePerSecond float64 // inbound frames per second per client, 0 disables
	Burst         int
	SendBuffer    int // outbound frames buffered per client
	WriteTimeout  time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		RatePerSecond: 5,
		Burst:         10,
		SendBuffer:    32,
		WriteTimeout:  10 * time.Second,
	}
}

// Server accepts feed channel connections and rebroadcasts every valid
// post frame to all connected clients. It keeps no history.
type Server struct {
	hub    *Hub
	codec  *livefeed.Codec
	logger *slog.Logger
	opts   Options
}

func NewServer(logger *slog.Logger, opts Options) *Server {
	logger = logger.With("component", "relay")
	return &Server{
		hub:    NewHub(logger),
		codec:  livefeed.NewCodec(),
		logger: logger,
		opts:   opts,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Routes returns the relay's HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Warn("failed to accept websocket", "error", err)
		return
	}

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		outgoing: make(chan []byte, s.opts.SendBuffer),
	}
	s.hub.register(c)
	s.logger.Info("client connected", "client", c.id, "remote", r.RemoteAddr, "clients", s.hub.ClientCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.writeLoop(ctx, c)

	s.readLoop(ctx, c)
	s.hub.unregister(c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("client disconnected", "client", c.id, "clients", s.hub.ClientCount())
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	var limiter *rate.Limiter
	if s.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.RatePerSecond), s.opts.Burst)
	}

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			framesRejected.WithLabelValues("binary").Inc()
			continue
		}
		if limiter != nil && !limiter.Allow() {
			framesRejected.WithLabelValues("rate_limited").Inc()
			s.logger.Warn("rate limit exceeded, dropping frame", "client", c.id)
			continue
		}
		post, err := s.codec.Decode(data)
		if err != nil {
			framesRejected.WithLabelValues("invalid").Inc()
			s.logger.Warn("invalid frame", "client", c.id, "error", err)
			continue
		}
		frame, err := s.codec.Encode(post)
		if err != nil {
			framesRejected.WithLabelValues("invalid").Inc()
			continue
		}
		s.logger.Debug("broadcasting post", "client", c.id, "author", post.Author())
		s.hub.Broadcast(frame)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *client) {
	for frame := range c.outgoing {
		if err := s.write(ctx, c, frame); err != nil {
			s.logger.Warn("failed to write to client", "client", c.id, "error", err)
			return
		}
	}
}

func (s *Server) write(ctx context.Context, c *client, frame []byte) error {
	if s.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
	}
	return c.conn.Write(ctx, websocket.MessageText, frame)
}
