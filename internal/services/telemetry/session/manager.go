// Package session manages the single active capture session: starting and
// stopping recordings and pumping feed samples into storage and the live
// broadcast hub.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seddaluca/racing-analytics/internal/broadcast"
	"github.com/seddaluca/racing-analytics/internal/cache"
	"github.com/seddaluca/racing-analytics/internal/domain"
	"github.com/seddaluca/racing-analytics/internal/feed"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// ErrSessionActive indicates a start request arrived while a session is
// already recording.
var ErrSessionActive = errors.New("a session is already active")

// ErrSessionNotFound indicates a stop request named a session that is not
// the active one.
var ErrSessionNotFound = errors.New("no matching active session")

// latestTelemetryTTL bounds how long the live snapshot stays readable after
// the feed goes quiet.
const latestTelemetryTTL = time.Minute

// StartRequest names the catalog entries a new session records against.
type StartRequest struct {
	CircuitName string
	VehicleName string
	GameMode    string
}

// Store is the slice of persistence the manager needs.
type Store interface {
	storage.CatalogStore
	storage.SessionStore
	storage.TelemetryStore
}

// Manager owns the single capture slot. One feed, one recording at a time.
type Manager struct {
	store  Store
	cache  cache.Cache
	hub    *broadcast.Hub
	source feed.Source

	mu     sync.Mutex
	active *activeSession

	now   func() time.Time
	newID func() (string, error)
}

type activeSession struct {
	session domain.Session
	circuit domain.Circuit
	vehicle domain.Vehicle
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager wires a manager over the shared store, cache, hub, and feed.
func NewManager(store Store, c cache.Cache, hub *broadcast.Hub, source feed.Source) *Manager {
	return &Manager{
		store:  store,
		cache:  c,
		hub:    hub,
		source: source,
		now:    time.Now,
		newID:  domain.NewID,
	}
}

// Start begins recording against the named circuit and vehicle. It fails
// with storage.ErrNotFound when either name is unknown and ErrSessionActive
// when a recording is already running.
func (m *Manager) Start(ctx context.Context, req StartRequest) (domain.Session, error) {
	circuit, err := m.store.CircuitByName(ctx, strings.TrimSpace(req.CircuitName))
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolve circuit: %w", err)
	}
	vehicle, err := m.store.VehicleByName(ctx, strings.TrimSpace(req.VehicleName))
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolve vehicle: %w", err)
	}

	mode := strings.TrimSpace(req.GameMode)
	if mode == "" {
		mode = domain.GameModeTimeTrial
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return domain.Session{}, ErrSessionActive
	}

	id, err := m.newID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	session := domain.Session{
		ID:        id,
		CircuitID: circuit.ID,
		VehicleID: vehicle.ID,
		StartTime: m.now().UTC(),
		GameMode:  mode,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	// The ingest loop outlives the start request.
	loopCtx, cancel := context.WithCancel(context.Background())
	active := &activeSession{
		session: session,
		circuit: circuit,
		vehicle: vehicle,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.active = active
	go m.ingest(loopCtx, active)

	m.publishSessionUpdate(session.ID, "started")
	return session, nil
}

// Stop ends the recording with the given ID. The ingest loop is drained
// before the session row is closed, so every accepted sample lands. The
// slot stays occupied until the end-write succeeds; a failed stop can be
// retried, and no new session can open over an unclosed row.
func (m *Manager) Stop(ctx context.Context, sessionID string) (domain.Session, error) {
	m.mu.Lock()
	active := m.active
	if active == nil || active.session.ID != sessionID {
		m.mu.Unlock()
		return domain.Session{}, ErrSessionNotFound
	}
	m.mu.Unlock()

	// Idempotent: a retried stop cancels again and finds done already
	// closed.
	active.cancel()
	<-active.done

	endedAt := m.now().UTC()
	if err := m.store.EndSession(ctx, sessionID, endedAt); err != nil {
		return domain.Session{}, fmt.Errorf("end session: %w", err)
	}

	m.mu.Lock()
	if m.active == active {
		m.active = nil
	}
	m.mu.Unlock()

	session, err := m.store.Session(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load ended session: %w", err)
	}

	m.publishSessionUpdate(sessionID, "stopped")
	return session, nil
}

// Active returns the currently recording session, if any.
func (m *Manager) Active() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return domain.Session{}, false
	}
	return m.active.session, true
}

// Shutdown stops any active recording. Used on service teardown.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return nil
	}
	_, err := m.Stop(ctx, active.session.ID)
	if errors.Is(err, ErrSessionNotFound) {
		// Lost a race with an explicit stop; nothing left to do.
		return nil
	}
	return err
}

// releaseAfterFeedClose frees the slot when the feed dies mid-recording so
// the manager returns to idle. The session row is closed too; otherwise the
// processor would never consider it finished.
func (m *Manager) releaseAfterFeedClose(ctx context.Context, sessionID string) {
	m.mu.Lock()
	active := m.active
	if active == nil || active.session.ID != sessionID {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// If the end-write fails the slot stays occupied; an explicit stop can
	// retry the write, and no new session can open over the unclosed row.
	if err := m.store.EndSession(ctx, sessionID, m.now().UTC()); err != nil {
		logf("end session after feed close: %v", err)
		return
	}

	m.mu.Lock()
	if m.active == active {
		m.active = nil
	}
	m.mu.Unlock()
	m.publishSessionUpdate(sessionID, "stopped")
}

func (m *Manager) publishSessionUpdate(sessionID, state string) {
	if m.hub == nil {
		return
	}
	update := map[string]string{"session_id": sessionID, "state": state}
	if err := m.hub.Publish(broadcast.EventSessionUpdate, update); err != nil {
		logf("publish session update: %v", err)
	}
}
