package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samfms/core-gateway/internal/auth"
	"github.com/samfms/core-gateway/internal/config"
	"github.com/samfms/core-gateway/internal/envelope"
	"github.com/samfms/core-gateway/internal/errs"
)

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", a.handleLivez)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("GET /health/detailed", a.handleHealthDetailed)
	mux.HandleFunc("GET /circuit-breakers", a.handleCircuitBreakers)
	mux.HandleFunc("GET /traces", a.handleTracesRecent)
	mux.HandleFunc("GET /traces/{id}", a.handleTraceByID)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/api/", a.handleAPI)

	return withRequestMetrics(a.httpMetrics, mux)
}

func withRequestMetrics(m interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.RecordHTTPRequest(r.Method, r.URL.Path, http.StatusText(sw.status), time.Since(started))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (a *app) handleLivez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !a.healthAgg.Ready(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *app) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	report := a.healthAgg.Detailed(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (a *app) handleCircuitBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.breakers.Snapshot())
}

func (a *app) handleTracesRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tracer.Recent())
}

func (a *app) handleTraceByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	trace, ok := a.tracer.Get(id)
	if !ok {
		writeErr(w, errs.New(errs.NotFound, "no trace found for "+id))
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// handleAPI is the generic ingress: authenticate, resolve a service via
// the router table, enforce the route's permission guard, dispatch over
// the broker, and translate the envelope.Response back into an HTTP
// response (spec §4.2, §4.6).
func (a *app) handleAPI(w http.ResponseWriter, r *http.Request) {
	traceID := r.Header.Get("X-Trace-Id")
	uc, denied := a.verifier.Verify(r.Header.Get("Authorization"), traceID, clientIP(r))
	if denied == auth.DenyUnauthorised {
		writeErr(w, errs.New(errs.Unauthorised, "missing or invalid bearer token"))
		return
	}

	rule, err := a.router.RuleFor(r.URL.Path)
	if err != nil {
		writeErr(w, err)
		return
	}
	if permission := requiredPermission(rule, r.Method); permission != "" {
		if result := auth.RequirePermission(uc, permission); !result.Allowed {
			writeErr(w, errs.New(errs.Forbidden, "missing required permission "+permission))
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeErr(w, errs.Wrap(errs.ValidationError, "reading request body", err))
		return
	}

	timeout := a.cfg.RequestDefaultTimeout
	resp, err := a.router.Dispatch(r.Context(), r.Method, r.URL.Path, body, uc, timeout)
	if err != nil {
		writeErr(w, err)
		return
	}

	if resp.Status == envelope.StatusError && resp.Error != nil {
		writeErr(w, errs.New(errs.Kind(resp.Error.Type), resp.Error.Message))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Data)
}

// requiredPermission derives the "service:action" permission a route
// guard checks from the matched rule's resource and the HTTP method:
// read methods need "<resource>:read", everything else "<resource>:write"
// (spec §4.6). A rule with no resource (e.g. the auth proxy routes)
// requires no permission beyond authentication.
func requiredPermission(rule config.RouteRule, method string) string {
	if rule.Resource == "" {
		return ""
	}
	action := "write"
	if method == http.MethodGet || method == http.MethodHead {
		action = "read"
	}
	return rule.Resource + ":" + action
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	kind := errs.As(err)
	writeJSON(w, kind.HTTPStatus(), map[string]string{
		"type":    string(kind),
		"message": errs.Message(err),
	})
}
