package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"bioneuro/backend/internal/flow"
	"bioneuro/backend/internal/llm"
	"bioneuro/backend/internal/middleware"
	"bioneuro/backend/internal/realtime"
)

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (r *chatRequest) normalize() { r.Message = strings.TrimSpace(r.Message) }

type transcriptResponse struct {
	SessionID string     `json:"session_id"`
	Greeting  string     `json:"greeting"`
	Turns     []llm.Turn `json:"turns"`
	Pending   *string    `json:"pending,omitempty"`
	State     flow.State `json:"state"`
	Demo      bool       `json:"demo"`
}

type streamFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (a *API) GetTranscript(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)
	chat := visitor.Chat()
	response := transcriptResponse{
		SessionID: visitor.ID,
		Greeting:  chat.Greeting(),
		Turns:     chat.Turns(),
		State:     chat.State(),
		Demo:      a.Proxy.DemoMode(),
	}
	if partial, ok := chat.Pending(); ok {
		response.Pending = &partial
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)
	var req chatRequest
	if err := a.bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	chat := visitor.Chat()
	reply, err := a.Proxy.Reply(r.Context(), chat, req.Message)
	if err != nil {
		a.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": visitor.ID,
		"reply":      reply,
		"state":      chat.State(),
	})
}

// StreamChatMessage relays reply fragments as server-sent events, closing
// with a done frame that carries the full text.
func (a *API) StreamChatMessage(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	visitor := a.visitor(w, r)
	var req chatRequest
	if err := a.bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	seq, err := a.Proxy.StreamReply(r.Context(), visitor.Chat(), req.Message)
	if err != nil {
		a.writeChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var full strings.Builder
	for fragment := range seq {
		full.WriteString(fragment)
		if err := writeEvent(w, streamFrame{Type: "chunk", Text: fragment}); err != nil {
			break
		}
		flusher.Flush()
		if r.Context().Err() != nil {
			break
		}
	}
	if r.Context().Err() != nil {
		return
	}
	_ = writeEvent(w, streamFrame{Type: "done", Text: full.String()})
	flusher.Flush()
}

// ChatSocket serves the streaming chat socket. admit is checked before each
// turn; the session is looked up per turn so a reset applies to an open
// socket.
func (a *API) ChatSocket(w http.ResponseWriter, r *http.Request, admit func() bool) {
	id := requestSessionID(r)
	if id == "" {
		id = r.URL.Query().Get("session_id")
	}
	visitor, _ := a.Visitors.GetOrCreate(id)
	header := http.Header{}
	header.Set(middleware.SessionHeader, visitor.ID)
	header.Add("Set-Cookie", a.sessionCookie(visitor.ID).String())
	realtime.ServeChat(w, r, a.Proxy, realtime.Options{
		Session: visitor.Chat,
		Admit:   admit,
		Header:  header,
		Log:     a.Log,
	})
}

func (a *API) DeleteChatSession(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)
	if err := visitor.ResetChat(); err != nil {
		writeError(w, http.StatusConflict, "a reply is still in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ChatHealth(w http.ResponseWriter, r *http.Request) {
	result := a.Proxy.LastHealth()
	if result == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		result = a.Proxy.HealthCheck(ctx)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": a.Proxy.ProviderName(),
		"demo":     a.Proxy.DemoMode(),
		"health":   result,
	})
}

func (a *API) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, llm.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, flow.ErrBusy):
		writeError(w, http.StatusConflict, "a reply is already in progress")
	default:
		a.Log.Error("chat failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chat unavailable")
	}
}

func writeEvent(w http.ResponseWriter, frame streamFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("data: " + string(payload) + "\n\n"))
	return err
}
