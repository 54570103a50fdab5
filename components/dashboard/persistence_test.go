package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu      sync.Mutex
	saves   []Collection
	stored  Collection
	found   bool
	loadErr error
	saveErr error
}

func (f *fakeRemote) LoadConfig(context.Context) (Collection, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return Collection{}, false, f.loadErr
	}
	return f.stored.Clone(), f.found, nil
}

func (f *fakeRemote) SaveConfig(_ context.Context, cfg Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, cfg.Clone())
	f.stored = cfg.Clone()
	f.found = true
	return nil
}

func (f *fakeRemote) Saves() []Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Collection(nil), f.saves...)
}

func namedCollection(names ...string) Collection {
	cfg := Collection{}
	for i, name := range names {
		cfg.Dashboards = append(cfg.Dashboards, Dashboard{ID: name, Name: name, Widgets: []Widget{}, CreatedAt: int64(i)})
	}
	if len(names) > 0 {
		cfg.ActiveDashboardID = names[0]
	}
	return cfg
}

func TestPersistenceDebounceCollapsesSaves(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPersistence(PersistenceOptions{Remote: remote, DebounceWindow: 50 * time.Millisecond})
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		p.Save(ctx, namedCollection(name))
	}
	assert.True(t, p.Pending())
	assert.Empty(t, remote.Saves())

	p.Wait()

	saves := remote.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, "e", saves[0].ActiveDashboardID)
	assert.False(t, p.Pending())
}

func TestPersistenceSaveWritesLocalImmediately(t *testing.T) {
	local := NewMemoryCache()
	p := NewPersistence(PersistenceOptions{Local: local})
	ctx := context.Background()

	p.Save(ctx, namedCollection("x", "y"))

	raw, err := local.Load()
	require.NoError(t, err)
	var cfg Collection
	require.NoError(t, json.Unmarshal(raw, &cfg))
	assert.Len(t, cfg.Dashboards, 2)
	assert.Equal(t, "x", cfg.ActiveDashboardID)
	assert.False(t, p.Pending())
}

func TestPersistenceFlushSendsPendingWrite(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPersistence(PersistenceOptions{Remote: remote, DebounceWindow: time.Hour})
	ctx := context.Background()

	p.Save(ctx, namedCollection("a"))
	p.Save(ctx, namedCollection("b"))
	require.NoError(t, p.Flush(ctx))
	p.Wait()

	saves := remote.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, "b", saves[0].ActiveDashboardID)
	require.NoError(t, p.Flush(ctx))
	assert.Len(t, remote.Saves(), 1)
}

func TestPersistenceLoadLocalToleratesGarbage(t *testing.T) {
	local := NewMemoryCache()
	require.NoError(t, local.Save([]byte("{not json")))
	p := NewPersistence(PersistenceOptions{Local: local})

	assert.True(t, p.LoadLocal(context.Background()).Empty())

	local.Err = errors.New("quota exceeded")
	assert.True(t, p.LoadLocal(context.Background()).Empty())
}

func TestPersistenceRemoteFailureIsSwallowed(t *testing.T) {
	remote := &fakeRemote{saveErr: errors.New("401")}
	p := NewPersistence(PersistenceOptions{Remote: remote, DebounceWindow: time.Hour})
	ctx := context.Background()

	p.Save(ctx, namedCollection("a"))
	err := p.Flush(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Empty(t, remote.Saves())
}

func TestPersistenceSyncOutcomes(t *testing.T) {
	ctx := context.Background()
	local := namedCollection("local")

	t.Run("local only", func(t *testing.T) {
		p := NewPersistence(PersistenceOptions{})
		got, outcome := p.Sync(ctx, local)
		assert.Equal(t, SyncLocalOnly, outcome)
		assert.Equal(t, local, got)
	})

	t.Run("seeded", func(t *testing.T) {
		remote := &fakeRemote{}
		p := NewPersistence(PersistenceOptions{Remote: remote})
		got, outcome := p.Sync(ctx, local)
		assert.Equal(t, SyncRemoteSeeded, outcome)
		assert.Equal(t, local, got)
		require.Len(t, remote.Saves(), 1)
		assert.Equal(t, "local", remote.Saves()[0].ActiveDashboardID)
	})

	t.Run("authoritative", func(t *testing.T) {
		cache := NewMemoryCache()
		remote := &fakeRemote{stored: namedCollection("remote", "other"), found: true}
		p := NewPersistence(PersistenceOptions{Local: cache, Remote: remote})
		got, outcome := p.Sync(ctx, local)
		assert.Equal(t, SyncRemoteAuthoritative, outcome)
		assert.Equal(t, "remote", got.ActiveDashboardID)
		assert.Equal(t, "remote", p.LoadLocal(ctx).ActiveDashboardID)
	})

	t.Run("unreachable", func(t *testing.T) {
		remote := &fakeRemote{loadErr: errors.New("dial tcp: connection refused")}
		p := NewPersistence(PersistenceOptions{Remote: remote})
		got, outcome := p.Sync(ctx, local)
		assert.Equal(t, SyncRemoteUnreachable, outcome)
		assert.Equal(t, local, got)
	})

	t.Run("seed fails", func(t *testing.T) {
		remote := &fakeRemote{saveErr: errors.New("503")}
		p := NewPersistence(PersistenceOptions{Remote: remote})
		_, outcome := p.Sync(ctx, local)
		assert.Equal(t, SyncRemoteUnreachable, outcome)
	})
}

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(t.TempDir(), "")

	data, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, cache.Save([]byte(`{"dashboards":[]}`)))
	data, err = cache.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"dashboards":[]}`, string(data))
	assert.Contains(t, cache.Path(), DefaultCacheKey+".json")
}
