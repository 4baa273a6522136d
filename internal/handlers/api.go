package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bioneuro/backend/internal/decoder"
	"bioneuro/backend/internal/llm"
	"bioneuro/backend/internal/metrics"
	"bioneuro/backend/internal/middleware"
	"bioneuro/backend/internal/session"
)

const (
	SessionCookie  = "bn_session"
	maxRequestBody = 16 << 10
)

type ContactInfo struct {
	WhatsApp   string   `json:"whatsapp"`
	Link       string   `json:"link"`
	Email      string   `json:"email"`
	Modalities []string `json:"modalities"`
}

type API struct {
	Visitors   *session.Store
	Proxy      *llm.Proxy
	Classifier *decoder.Classifier
	Links      decoder.LinkBuilder
	Contact    ContactInfo
	Metrics    *metrics.Collector
	Log        *zap.Logger

	SecureCookies bool
	CookieTTL     time.Duration

	validate *validator.Validate
}

func NewAPI(visitors *session.Store, proxy *llm.Proxy, classifier *decoder.Classifier, links decoder.LinkBuilder, contact ContactInfo, collector *metrics.Collector, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	if classifier == nil {
		classifier = decoder.DefaultClassifier()
	}
	return &API{
		Visitors:   visitors,
		Proxy:      proxy,
		Classifier: classifier,
		Links:      links,
		Contact:    contact,
		Metrics:    collector,
		Log:        log,
		CookieTTL:  30 * time.Minute,
		validate:   validator.New(),
	}
}

// visitor resolves the caller's visitor and echoes its ID back in both the
// header and the cookie.
func (a *API) visitor(w http.ResponseWriter, r *http.Request) *session.Visitor {
	visitor, _ := a.Visitors.GetOrCreate(requestSessionID(r))
	w.Header().Set(middleware.SessionHeader, visitor.ID)
	http.SetCookie(w, a.sessionCookie(visitor.ID))
	return visitor
}

func (a *API) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(a.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func requestSessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

type normalizer interface {
	normalize()
}

// bind decodes the body, trims its fields and validates struct tags.
func (a *API) bind(r *http.Request, dst normalizer) error {
	if err := readJSON(r, dst); err != nil {
		return err
	}
	dst.normalize()
	return a.validate.Struct(dst)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		switch verrs[0].Tag() {
		case "required":
			return field + " is required"
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, verrs[0].Param())
		}
		return field + " is invalid"
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
