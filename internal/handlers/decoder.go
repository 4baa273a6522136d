package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"bioneuro/backend/internal/decoder"
	"bioneuro/backend/internal/flow"
)

type decodeRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (r *decodeRequest) normalize() { r.Text = strings.TrimSpace(r.Text) }

type decodeResponse struct {
	SessionID string         `json:"session_id"`
	State     flow.State     `json:"state"`
	RuleID    string         `json:"rule_id"`
	Bundle    decoder.Bundle `json:"bundle"`
	Closing   string         `json:"closing"`
	DeepLink  string         `json:"deep_link"`
	QRCode    string         `json:"qr_code,omitempty"`
}

func (a *API) GetDecoderRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": a.Classifier.Rules()})
}

func (a *API) GetDecoder(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)
	writeJSON(w, http.StatusOK, visitor.Decoder.Snapshot())
}

func (a *API) SubmitDecoder(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)

	var req decodeRequest
	if err := a.bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := visitor.Decoder.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, decoder.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, flow.ErrBusy):
		writeError(w, http.StatusConflict, "a reading is already in progress")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.Log.Debug("decoder request abandoned", zap.String("session_id", visitor.ID))
		return
	case err != nil:
		a.Log.Error("decoder failed", zap.String("session_id", visitor.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "decoder failed")
		return
	}
	a.Metrics.ObserveClassification(result.RuleID)

	response := decodeResponse{
		SessionID: visitor.ID,
		State:     visitor.Decoder.Snapshot().State,
		RuleID:    result.RuleID,
		Bundle:    result.Bundle,
		Closing:   result.Closing,
		DeepLink:  result.DeepLink,
	}
	if png, err := qrcode.Encode(result.DeepLink, qrcode.Medium, 280); err == nil {
		response.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	} else {
		a.Log.Warn("qr encode failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) ResetDecoder(w http.ResponseWriter, r *http.Request) {
	visitor := a.visitor(w, r)
	if err := visitor.Decoder.Reset(); err != nil {
		writeError(w, http.StatusConflict, "a reading is already in progress")
		return
	}
	writeJSON(w, http.StatusOK, visitor.Decoder.Snapshot())
}
