// Package httpserver is the HTTP front door (C8d): it serves merged
// wiki pages under /wiki/<title> and transparently proxies every other
// path to the upstream wiki, both wrapped in the observability
// middleware's span-per-request and access logging.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/wikiguard/internal/observability"
)

const wikiPathPrefix = "/wiki/"

// errorPageTemplate is the small HTML body served on a 500.
const errorPageTemplate = `<!DOCTYPE html><html><head><title>wikiguard error</title></head>` +
	`<body><h1>Internal error</h1><p>%s</p></body></html>`

// pageBuilder is the subset of *orchestrator.Orchestrator the front
// door depends on, kept as an interface so tests can stub it.
type pageBuilder interface {
	Handle(ctx context.Context, title string) (string, error)
}

// Handler serves /wiki/<title> from orch and proxies everything else
// to the upstream wiki over HTTPS.
type Handler struct {
	orch  pageBuilder
	proxy *httputil.ReverseProxy
	log   *slog.Logger
}

// New builds the front-door Handler. wikiHost/wikiPort are the
// upstream this instance mirrors and proxies non-wiki paths to.
func New(orch pageBuilder, wikiHost string, wikiPort int, log *slog.Logger) *Handler {
	target := &url.URL{Scheme: "https", Host: fmt.Sprintf("%s:%d", wikiHost, wikiPort)}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Director = func(req *http.Request) {
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.Host = target.Host
	}

	return &Handler{orch: orch, proxy: proxy, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, wikiPathPrefix) {
		h.serveWikiPage(w, r)
		return
	}

	h.proxy.ServeHTTP(w, r)
}

func (h *Handler) serveWikiPage(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimPrefix(r.URL.Path, wikiPathPrefix)

	page, err := h.orch.Handle(r.Context(), title)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to build merged page", "title", title, "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, errorPageTemplate, "could not render this page")

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// WithMiddleware wraps handler in the standard span-per-request and
// access-log middleware, the way cmd/wikiguard wires the server.
func WithMiddleware(tracer trace.Tracer, log *slog.Logger, handler http.Handler) http.Handler {
	return observability.HTTPMiddleware(tracer, log, handler)
}
