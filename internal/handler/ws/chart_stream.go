package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/usecase"
	xhttp "AstroAI/pkg/http"
	xlogger "AstroAI/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxFrameBytes       = 16 << 10
)

// Frame is one server message. Type is "chart" or "error".
type Frame struct {
	Type   string                  `json:"type"`
	Chart  *models.NatalChart      `json:"chart,omitempty"`
	Cached bool                    `json:"cached,omitempty"`
	Errors []xhttp.ValidationError `json:"errors,omitempty"`
}

// ChartStream upgrades GET /ws/chart and answers every BirthRequest frame with a chart frame.
type ChartStream struct {
	logger       *xlogger.Logger
	charts       *usecase.ChartService
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

type Option func(*ChartStream)

func WithPingInterval(d time.Duration) Option {
	return func(s *ChartStream) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithAllowedOrigins restricts the Origin header; "*" or no origins allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(s *ChartStream) {
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			if o == "*" {
				return
			}
			allowed[o] = struct{}{}
		}
		if len(allowed) == 0 {
			return
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

func NewChartStream(logger *xlogger.Logger, charts *usecase.ChartService, opts ...Option) *ChartStream {
	if logger == nil {
		logger = xlogger.Nop()
	}
	s := &ChartStream{
		logger: logger,
		charts: charts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChartStream) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chart", s.Serve)
}

func (s *ChartStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		s.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	log := s.logger.With(xlogger.String("remote", c.RealIP()))
	log.Debug("chart stream opened")

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("chart stream read failed", xlogger.Error(err))
			}
			log.Debug("chart stream closed")
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))

		frame := s.handleFrame(c, b)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Warn("chart stream write failed", xlogger.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *ChartStream) handleFrame(c echo.Context, b []byte) Frame {
	var req models.BirthRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return Frame{Type: "error", Errors: []xhttp.ValidationError{{Code: xhttp.CodeBind, Message: "frame is not a JSON birth request"}}}
	}
	if err := xhttp.DefaultAndValidate(c.Request().Context(), &req); err != nil {
		return Frame{Type: "error", Errors: xhttp.ValidationErrors(err)}
	}
	chart, cached := s.charts.Compute(c.Request().Context(), s.charts.BirthData(req))
	return Frame{Type: "chart", Chart: &chart, Cached: cached}
}

// pingLoop keeps idle connections alive. WriteControl may run concurrently with the reader's writes.
func (s *ChartStream) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return
			}
		}
	}
}
