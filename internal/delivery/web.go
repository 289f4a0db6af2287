package delivery

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
)

// WebViewer serves the latest full report over HTTP. It implements
// Notifier so the runner can treat it like any other channel.
type WebViewer struct {
	addr   string
	server *http.Server
	logger *zap.Logger

	mu     sync.RWMutex
	latest *render.Message
}

func NewWebViewer(addr string, logger *zap.Logger) *WebViewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	wv := &WebViewer{addr: addr, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", wv.handleIndex)
	r.Get("/report.md", wv.handleRaw)

	wv.server = &http.Server{Addr: addr, Handler: r}
	return wv
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wv *WebViewer) Start() error {
	ln, err := net.Listen("tcp", wv.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wv.addr, err)
	}
	go func() {
		wv.logger.Info("web viewer listening", zap.String("addr", wv.addr))
		if err := wv.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			wv.logger.Error("web viewer error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wv *WebViewer) Shutdown(ctx context.Context) error {
	return wv.server.Shutdown(ctx)
}

func (wv *WebViewer) Name() string {
	return "web"
}

// Send stores the message as the page content. It never fails.
func (wv *WebViewer) Send(_ context.Context, msg render.Message) error {
	wv.mu.Lock()
	wv.latest = &msg
	wv.mu.Unlock()
	return nil
}

func (wv *WebViewer) handleIndex(w http.ResponseWriter, r *http.Request) {
	wv.mu.RLock()
	latest := wv.latest
	wv.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if latest == nil {
		fmt.Fprint(w, `<!DOCTYPE html><html><body><h1>Paper Digest</h1><p>No report available yet. Check back later.</p></body></html>`)
		return
	}

	fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Paper Digest</title></head><body><pre style="white-space: pre-wrap; font-family: inherit;">%s</pre></body></html>`,
		html.EscapeString(latest.Text))
}

func (wv *WebViewer) handleRaw(w http.ResponseWriter, r *http.Request) {
	wv.mu.RLock()
	latest := wv.latest
	wv.mu.RUnlock()

	if latest == nil {
		http.Error(w, "no report yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, latest.Text)
}
