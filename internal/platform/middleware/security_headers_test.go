package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_FixedSet(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai-audit", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := SecurityHeaders()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, want := range securityHeaders {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("header %s: got %q, want %q", name, got, want)
		}
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("PHI responses must not be cacheable")
	}
}

func TestSecurityHeaders_SetOnErrorResponses(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai-audit/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})

	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("handler error not propagated: %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("headers must be set before the handler runs, error or not")
	}
}
