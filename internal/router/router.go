package router

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"bioneuro/backend/internal/handlers"
	"bioneuro/backend/internal/metrics"
	"bioneuro/backend/internal/middleware"
)

// Limits groups the limiters applied per client. Chat guards every chat
// turn, socket messages included; General guards all of /api/v1.
type Limits struct {
	General middleware.Limiter
	Chat    middleware.Limiter
}

type Router struct {
	api     *handlers.API
	limits  Limits
	origin  string
	metrics *metrics.Collector
}

func New(api *handlers.API, limits Limits, origin string, collector *metrics.Collector) *Router {
	return &Router{api: api, limits: limits, origin: origin, metrics: collector}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		rt.metrics.RecordHTTPRequest(r.Method, routeLabel(path), rec.status, time.Since(start))
	}()

	if middleware.HandleCORS(rec, r, rt.origin) {
		rec.status = http.StatusNoContent
		return
	}
	middleware.SecurityHeaders(rec)

	if !rt.admit(path, r) {
		rec.Header().Set("Retry-After", "60")
		rec.WriteHeader(http.StatusTooManyRequests)
		_, _ = rec.Write([]byte("{\"error\":\"rate limit exceeded\"}"))
		return
	}

	switch path {
	case "/healthz":
		if r.Method == http.MethodGet {
			rt.api.Healthz(rec, r)
			return
		}
	case "/metrics":
		if r.Method == http.MethodGet {
			rt.metrics.Handler().ServeHTTP(rec, r)
			return
		}
	case "/api/v1/contact":
		if r.Method == http.MethodGet {
			rt.api.GetContact(rec, r)
			return
		}
	case "/api/v1/decoder/rules":
		if r.Method == http.MethodGet {
			rt.api.GetDecoderRules(rec, r)
			return
		}
	case "/api/v1/decoder":
		switch r.Method {
		case http.MethodGet:
			rt.api.GetDecoder(rec, r)
			return
		case http.MethodPost:
			rt.api.SubmitDecoder(rec, r)
			return
		}
	case "/api/v1/decoder/reset":
		if r.Method == http.MethodPost {
			rt.api.ResetDecoder(rec, r)
			return
		}
	case "/api/v1/chat/transcript":
		if r.Method == http.MethodGet {
			rt.api.GetTranscript(rec, r)
			return
		}
	case "/api/v1/chat/messages":
		if r.Method == http.MethodPost {
			rt.api.PostChatMessage(rec, r)
			return
		}
	case "/api/v1/chat/stream":
		if r.Method == http.MethodPost {
			rt.api.StreamChatMessage(rec, r)
			return
		}
	case "/api/v1/chat/ws":
		if r.Method == http.MethodGet {
			rt.api.ChatSocket(rec, r, rt.chatAdmitter(r))
			return
		}
	case "/api/v1/chat/session":
		if r.Method == http.MethodDelete {
			rt.api.DeleteChatSession(rec, r)
			return
		}
	case "/api/v1/chat/health":
		if r.Method == http.MethodGet {
			rt.api.ChatHealth(rec, r)
			return
		}
	}

	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(http.StatusNotFound)
	_, _ = rec.Write([]byte("{\"error\":\"not found\"}"))
}

func (rt *Router) admit(path string, r *http.Request) bool {
	if !strings.HasPrefix(path, "/api/v1/") {
		return true
	}
	key := middleware.ClientKey(r)
	if rt.limits.General != nil && !rt.limits.General.Allow(key) {
		return false
	}
	if isChatSpend(path, r.Method) && rt.limits.Chat != nil {
		return rt.limits.Chat.Allow("chat:" + key)
	}
	return true
}

// isChatSpend covers the request-per-turn chat routes. Socket turns are
// metered one by one through chatAdmitter instead of at the handshake.
func isChatSpend(path, method string) bool {
	switch path {
	case "/api/v1/chat/messages", "/api/v1/chat/stream":
		return method == http.MethodPost
	}
	return false
}

func (rt *Router) chatAdmitter(r *http.Request) func() bool {
	if rt.limits.Chat == nil {
		return nil
	}
	key := "chat:" + middleware.ClientKey(r)
	return func() bool { return rt.limits.Chat.Allow(key) }
}

// routeLabel keeps metric cardinality bounded by folding unknown paths.
func routeLabel(path string) string {
	switch path {
	case "/healthz", "/metrics",
		"/api/v1/contact",
		"/api/v1/decoder", "/api/v1/decoder/rules", "/api/v1/decoder/reset",
		"/api/v1/chat/transcript", "/api/v1/chat/messages", "/api/v1/chat/stream",
		"/api/v1/chat/ws", "/api/v1/chat/session", "/api/v1/chat/health":
		return path
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if flusher, ok := s.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return hijacker.Hijack()
}
