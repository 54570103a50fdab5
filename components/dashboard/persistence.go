package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

const (
	// DefaultDebounceWindow collapses rapid saves into one remote write.
	DefaultDebounceWindow = 500 * time.Millisecond
	defaultRemoteTimeout  = 10 * time.Second
)

// SyncOutcome describes how the remote load at startup resolved.
type SyncOutcome string

const (
	// SyncLocalOnly means no remote store is configured (anonymous user).
	SyncLocalOnly SyncOutcome = "local-only"
	// SyncRemoteAuthoritative means the remote collection replaced local state.
	SyncRemoteAuthoritative SyncOutcome = "remote-authoritative"
	// SyncRemoteSeeded means the remote had no data and local state was pushed up.
	SyncRemoteSeeded SyncOutcome = "remote-seeded"
	// SyncRemoteUnreachable means the remote failed and local state stays in use.
	SyncRemoteUnreachable SyncOutcome = "remote-unreachable"
)

// PersistenceOptions configures the two-tier persistence layer.
type PersistenceOptions struct {
	Local           LocalCache
	Remote          RemoteStore
	DebounceWindow  time.Duration
	RemoteTimeout   time.Duration
	Instrumentation Instrumentation
}

// Persistence mirrors the collection to a local cache synchronously and
// to the remote store through a debounced pending write.
type Persistence struct {
	local   LocalCache
	remote  RemoteStore
	window  time.Duration
	timeout time.Duration
	instr   Instrumentation

	mu       sync.Mutex
	pending  *pendingWrite
	inflight sync.WaitGroup
}

// pendingWrite is the single scheduled remote write. Scheduling a new one
// cancels and replaces it.
type pendingWrite struct {
	ctx      context.Context
	snapshot Collection
	timer    *time.Timer
}

// NewPersistence builds the layer. A nil Remote means the user is not
// signed in and only the local cache is used.
func NewPersistence(opts PersistenceOptions) *Persistence {
	if opts.Local == nil {
		opts.Local = NewMemoryCache()
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	return &Persistence{
		local:   opts.Local,
		remote:  opts.Remote,
		window:  opts.DebounceWindow,
		timeout: opts.RemoteTimeout,
		instr:   normalizeInstrumentation(opts.Instrumentation),
	}
}

// HasRemote reports whether a remote store is configured.
func (p *Persistence) HasRemote() bool {
	return p.remote != nil
}

// LoadLocal reads the local cache. Absent or malformed data yields an
// empty collection.
func (p *Persistence) LoadLocal(ctx context.Context) Collection {
	data, err := p.local.Load()
	if err != nil {
		log.Error(ctx, errors.Wrap(ErrPersistence, "read local cache", j.KV("reason", err.Error())))
		return Collection{}
	}
	if len(data) == 0 {
		return Collection{}
	}
	var cfg Collection
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Error(ctx, errors.Wrap(ErrPersistence, "decode local cache", j.KV("reason", err.Error())))
		return Collection{}
	}
	return cfg
}

// Save writes the collection to the local cache immediately and schedules
// a debounced remote write carrying this snapshot. Failures are logged.
func (p *Persistence) Save(ctx context.Context, cfg Collection) {
	snapshot := cfg.Clone()
	p.saveLocal(ctx, snapshot)
	if p.remote == nil {
		return
	}
	p.schedule(context.WithoutCancel(ctx), snapshot)
}

func (p *Persistence) saveLocal(ctx context.Context, cfg Collection) {
	data, err := json.Marshal(cfg)
	if err == nil {
		err = p.local.Save(data)
	}
	if err != nil {
		log.Error(ctx, errors.Wrap(ErrPersistence, "write local cache", j.KV("reason", err.Error())))
		p.instr.Record(ctx, "dashboard.persistence.local_failed", map[string]any{"error": err.Error()})
	}
}

func (p *Persistence) schedule(ctx context.Context, snapshot Collection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil && p.pending.timer.Stop() {
		p.inflight.Done()
	}
	pw := &pendingWrite{ctx: ctx, snapshot: snapshot}
	p.inflight.Add(1)
	pw.timer = time.AfterFunc(p.window, func() { p.fire(pw) })
	p.pending = pw
}

func (p *Persistence) fire(pw *pendingWrite) {
	defer p.inflight.Done()
	p.mu.Lock()
	if p.pending != pw {
		p.mu.Unlock()
		return
	}
	p.pending = nil
	p.mu.Unlock()
	_ = p.writeRemote(pw.ctx, pw.snapshot)
}

// Pending reports whether a remote write is scheduled but not yet sent.
func (p *Persistence) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Flush sends the pending remote write now instead of waiting for the
// debounce window.
func (p *Persistence) Flush(ctx context.Context) error {
	p.mu.Lock()
	pw := p.pending
	if pw == nil {
		p.mu.Unlock()
		return nil
	}
	stopped := pw.timer.Stop()
	p.pending = nil
	p.mu.Unlock()
	if stopped {
		defer p.inflight.Done()
	}
	return p.writeRemote(ctx, pw.snapshot)
}

// Wait blocks until every scheduled remote write has fired or been replaced.
func (p *Persistence) Wait() {
	p.inflight.Wait()
}

func (p *Persistence) writeRemote(ctx context.Context, cfg Collection) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.remote.SaveConfig(ctx, cfg); err != nil {
		err = errors.Wrap(ErrPersistence, "write remote store", j.KV("reason", err.Error()))
		log.Error(ctx, err)
		p.instr.Record(ctx, "dashboard.persistence.remote_failed", map[string]any{"error": err.Error()})
		return err
	}
	p.instr.Record(ctx, "dashboard.persistence.remote_saved", map[string]any{
		"dashboards": len(cfg.Dashboards),
	})
	return nil
}

// Sync performs the one-time remote load. A non-empty remote collection
// wins and overwrites the local cache; an empty remote is seeded with
// local state; failures leave local state in charge.
func (p *Persistence) Sync(ctx context.Context, local Collection) (Collection, SyncOutcome) {
	if p.remote == nil {
		return local, SyncLocalOnly
	}
	loadCtx, cancel := context.WithTimeout(ctx, p.timeout)
	remote, found, err := p.remote.LoadConfig(loadCtx)
	cancel()
	if err != nil {
		log.Error(ctx, errors.Wrap(ErrPersistence, "load remote store", j.KV("reason", err.Error())))
		return local, SyncRemoteUnreachable
	}
	if !found || remote.Empty() {
		if err := p.writeRemote(ctx, local.Clone()); err != nil {
			return local, SyncRemoteUnreachable
		}
		log.Info(ctx, "seeded remote dashboard config", j.KV("dashboards", len(local.Dashboards)))
		return local, SyncRemoteSeeded
	}
	p.discardPending()
	p.saveLocal(ctx, remote)
	return remote, SyncRemoteAuthoritative
}

// discardPending drops a scheduled remote write that the remote state has
// superseded.
func (p *Persistence) discardPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return
	}
	if p.pending.timer.Stop() {
		p.inflight.Done()
	}
	p.pending = nil
}
