package handlers

import (
	"net/http"
	"runtime"
)

func (a *API) GetContact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Contact)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"visitors":   a.Visitors.Count(),
		"demo":       a.Proxy.DemoMode(),
		"goroutines": runtime.NumGoroutine(),
	})
}
