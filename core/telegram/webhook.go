package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	webhookReadTimeout     = 10 * time.Second
	webhookShutdownTimeout = 5 * time.Second
	secretTokenHeader      = "X-Telegram-Bot-Api-Secret-Token"
)

// WebhookPoller registers a webhook with Telegram and receives updates through ServeHTTP.
// Requests that arrive before registration completes are answered with 503 so that
// Telegram redelivers them.
type WebhookPoller struct {
	Webhook *tele.Webhook

	mu   sync.RWMutex
	dest chan tele.Update
}

// NewWebhookPoller wraps the registration parameters in wh.
func NewWebhookPoller(wh *tele.Webhook) *WebhookPoller {
	return &WebhookPoller{Webhook: wh}
}

// Poll implements tele.Poller.
func (p *WebhookPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	if err := b.SetWebhook(p.Webhook); err != nil {
		b.OnError(err, nil)
		return
	}
	p.setDest(dest)
	<-stop
	p.setDest(nil)
}

func (p *WebhookPoller) setDest(dest chan tele.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dest = dest
}

// ServeHTTP accepts a single Telegram update.
func (p *WebhookPoller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if secret := p.Webhook.SecretToken; secret != "" && r.Header.Get(secretTokenHeader) != secret {
		logger.Warn(r.Context(), "tg", "webhook.reject",
			slog.String("status", "fail"),
			slog.String("cause", "secret_token"),
		)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var upd tele.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		logger.Warn(r.Context(), "tg", "webhook.decode",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p.mu.RLock()
	dest := p.dest
	p.mu.RUnlock()
	if dest == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	select {
	case dest <- upd:
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

// NewWebhookMux serves Telegram updates on path and a liveness probe on /healthz.
func NewWebhookMux(path string, updates http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, updates)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// webhookServer owns the HTTP listener that feeds the webhook poller.
type webhookServer struct {
	srv  *http.Server
	done chan error
}

func startWebhookServer(addr string, handler http.Handler) (*webhookServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telegram: webhook listen %s: %w", addr, err)
	}
	ws := &webhookServer{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: webhookReadTimeout,
		},
		done: make(chan error, 1),
	}
	go func() {
		err := ws.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		ws.done <- err
	}()
	logger.Info(context.Background(), "tg", "webhook.listen",
		slog.String("listen", ln.Addr().String()),
	)
	return ws, nil
}

func (ws *webhookServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
	defer cancel()
	if err := ws.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-ws.done
}
