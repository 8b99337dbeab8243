package service

import (
	"log/slog"
	"sync"
)

// Readiness combines the independent readiness signals into the single
// chatReady gate. Every user-initiated action (send, switch, remove,
// upload) consults the aggregate rather than individual flags, so no action
// can slip through a partial-readiness window.
//
// The aggregate is the logical AND of: backend/RAG ready, stream completed
// (no cycle in flight), no forced model switch pending, and model settings
// applied.
type Readiness struct {
	mu sync.Mutex

	backendReady       bool
	streamCompleted    bool
	modelSwitchPending bool
	settingsApplied    bool

	ready       bool
	subscribers []func(bool)
}

// NewReadiness starts with the stream completed and settings applied, so
// the gate opens as soon as the backend reports ready.
func NewReadiness() *Readiness {
	return &Readiness{
		streamCompleted: true,
		settingsApplied: true,
	}
}

// Ready reports the current aggregate.
func (r *Readiness) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Subscribe registers a callback invoked whenever the aggregate flips.
// Callbacks run on the caller's goroutine of the flag change that caused
// the flip and must not block.
func (r *Readiness) Subscribe(fn func(ready bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

func (r *Readiness) SetBackendReady(v bool) {
	r.set(func() { r.backendReady = v })
}

func (r *Readiness) SetStreamCompleted(v bool) {
	r.set(func() { r.streamCompleted = v })
}

func (r *Readiness) SetModelSwitchPending(v bool) {
	r.set(func() { r.modelSwitchPending = v })
}

func (r *Readiness) SetSettingsApplied(v bool) {
	r.set(func() { r.settingsApplied = v })
}

func (r *Readiness) set(apply func()) {
	r.mu.Lock()
	apply()
	ready := r.backendReady && r.streamCompleted && !r.modelSwitchPending && r.settingsApplied
	flipped := ready != r.ready
	r.ready = ready
	subscribers := r.subscribers
	if flipped {
		slog.Debug("Chat readiness changed",
			"ready", ready,
			"backend_ready", r.backendReady,
			"stream_completed", r.streamCompleted,
			"model_switch_pending", r.modelSwitchPending,
			"settings_applied", r.settingsApplied,
		)
	}
	r.mu.Unlock()

	if flipped {
		for _, fn := range subscribers {
			fn(ready)
		}
	}
}
