package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Swuzz123/Coffee-Assistant/internal/handlers"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// HTTPOptions configures the gin server. RateLimit is requests per second per
// client IP; zero disables the limiter.
type HTTPOptions struct {
	Addr           string
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	ServiceName    string
}

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	chat   *handlers.ChatHandler
	opts   HTTPOptions
	log    logrus.FieldLogger
}

func NewHTTPServer(chat *handlers.ChatHandler, opts HTTPOptions, log logrus.FieldLogger) *HTTPServer {
	s := &HTTPServer{
		chat: chat,
		opts: opts,
		log:  logging.Component(log, "http"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.log))
	if opts.RateLimit > 0 {
		engine.Use(newClientLimiter(opts.RateLimit, opts.RateBurst).middleware())
	}

	engine.GET("/", s.root)
	engine.GET("/health", s.health)

	chatGroup := engine.Group("/chat")
	chatGroup.POST("/start", s.startChat)
	chatGroup.POST("/message", s.sendMessage)
	chatGroup.GET("/history/:session_id", s.history)
	chatGroup.DELETE("/clear/:session_id", s.clearSession)

	s.engine = engine
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.engine }

// Start serves until Shutdown; it returns nil on a clean shutdown.
func (s *HTTPServer) Start() error {
	s.log.WithField("addr", s.opts.Addr).Info("🌐 HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *HTTPServer) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.opts.ServiceName,
		"docs":    "POST /chat/start, POST /chat/message, GET /chat/history/:session_id, DELETE /chat/clear/:session_id",
	})
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, s.chat.Health(c.Request.Context()))
}

func (s *HTTPServer) startChat(c *gin.Context) {
	var req models.ChatStartRequest
	// An empty body starts an anonymous chat.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, handlers.ErrInvalidRequest, err.Error())
			return
		}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	resp, err := s.chat.StartChat(ctx, &req)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) sendMessage(c *gin.Context) {
	var req models.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, handlers.ErrInvalidRequest, err.Error())
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	resp, err := s.chat.SendMessage(ctx, &req)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) history(c *gin.Context) {
	resp, err := s.chat.History(c.Request.Context(), &models.ChatHistoryRequest{SessionID: c.Param("session_id")})
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) clearSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := s.chat.ClearSession(c.Request.Context(), &models.ChatHistoryRequest{SessionID: sessionID}); err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": "cleared"})
}

// fail maps handler errors to status codes: invalid request 400, invalid
// session 401, anything else 500.
func (s *HTTPServer) fail(c *gin.Context, err error, detail string) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		detail = "failed to process request"
	} else if detail == "" {
		detail = err.Error()
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: code, Detail: detail})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, handlers.ErrInvalidRequest):
		return http.StatusBadRequest, models.ErrorInvalidRequest
	case errors.Is(err, handlers.ErrSessionInvalid):
		return http.StatusUnauthorized, models.ErrorSessionInvalid
	default:
		return http.StatusInternalServerError, models.ErrorInternal
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Info("HTTP request")
	}
}

// limiterIdle is how long a client may stay silent before its bucket is dropped.
const limiterIdle = 10 * time.Minute

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idle are pruned from get, at most once per idle period.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		clients:   make(map[string]*visitor),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idle:      limiterIdle,
		now:       time.Now,
		lastPrune: time.Now(),
	}
}

func (l *clientLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= l.idle {
		l.prune(now)
	}

	v, ok := l.clients[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = v
	}
	v.seen = now
	return v.lim
}

func (l *clientLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.idle)
	for ip, v := range l.clients {
		if v.seen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
	l.lastPrune = now
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:  "RATE_LIMITED",
				Detail: "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}
