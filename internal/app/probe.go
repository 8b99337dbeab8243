package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"superchat/client/internal/backend"
)

// Prober runs the three-phase startup health check: backend reachability,
// model availability, backend hello. Each phase gets a fixed retry budget
// at a fixed interval; exhausting a phase ends the probe with a terminal
// failed status. There is no backoff or jitter, a slow backend is simply
// polled until the budget runs out.
type Prober struct {
	client   healthBackend
	hubPath  string
	models   []string
	retries  int
	interval time.Duration

	mu          sync.Mutex
	status      string
	subscribers []func(status string)
}

// healthBackend is the slice of the backend surface the prober needs.
type healthBackend interface {
	Hello(ctx context.Context) (string, error)
	GetMissingModels(ctx context.Context, hubPath string, models []string) (*backend.MissingModels, error)
}

func NewProber(client healthBackend, hubPath string, models []string, retries int, interval time.Duration) *Prober {
	return &Prober{
		client:   client,
		hubPath:  hubPath,
		models:   models,
		retries:  retries,
		interval: interval,
		status:   "Starting up",
	}
}

// Status returns the latest human-readable probe status.
func (p *Prober) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// OnStatus registers a callback invoked on every status change.
func (p *Prober) OnStatus(fn func(status string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Prober) setStatus(status string) {
	p.mu.Lock()
	p.status = status
	subs := p.subscribers
	p.mu.Unlock()

	slog.Info("Startup probe status", "status", status)
	for _, fn := range subs {
		fn(status)
	}
}

// Run executes the probe phases in order. A nil return means the backend
// is reachable, all required models are present and the hello handshake
// answered ready.
func (p *Prober) Run(ctx context.Context) error {
	if err := p.probe(ctx, "Connecting to backend", p.checkConnection); err != nil {
		p.setStatus("Failed to connect to backend. Please restart the application.")
		return err
	}
	if err := p.probe(ctx, "Checking models", p.checkModels); err != nil {
		p.setStatus("Required models are missing. Please restart the application.")
		return err
	}
	if err := p.probe(ctx, "Waiting for backend to finish loading", p.checkHello); err != nil {
		p.setStatus("Backend did not become ready. Please restart the application.")
		return err
	}
	p.setStatus("Ready")
	return nil
}

// probe retries one phase until it succeeds or the budget is exhausted.
func (p *Prober) probe(ctx context.Context, label string, check func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		p.setStatus(fmt.Sprintf("%s (%d/%d)", label, attempt, p.retries))
		if err := check(ctx); err != nil {
			lastErr = err
			slog.Debug("Probe attempt failed", "phase", label, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.interval):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("%s: out of retries: %w", label, lastErr)
}

func (p *Prober) checkConnection(ctx context.Context) error {
	_, err := p.client.Hello(ctx)
	return err
}

func (p *Prober) checkModels(ctx context.Context) error {
	missing, err := p.client.GetMissingModels(ctx, p.hubPath, p.models)
	if err != nil {
		return err
	}
	if len(missing.MissingModels) > 0 {
		p.setStatus(fmt.Sprintf("Downloading models: %s", strings.Join(missing.MissingModels, ", ")))
		return fmt.Errorf("models not available yet: %s", strings.Join(missing.MissingModels, ", "))
	}
	return nil
}

func (p *Prober) checkHello(ctx context.Context) error {
	answer, err := p.client.Hello(ctx)
	if err != nil {
		return err
	}
	if answer != "ready" {
		return fmt.Errorf("backend answered %q", answer)
	}
	return nil
}
