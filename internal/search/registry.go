package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	ErrSessionNotFound  = errors.New("search session not found")
	ErrLocationRequired = errors.New("address or coordinates required")
)

// Geocoder labels coordinates and resolves typed addresses;
// *geocoding.Resolver satisfies it.
type Geocoder interface {
	geolocation.AddressResolver
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}

type RegistryOptions struct {
	Search   Options
	Location geolocation.Options
	IdleTTL  time.Duration
	// SweepSpec is a robfig/cron schedule, e.g. "@every 1m".
	SweepSpec string
}

// Session pairs a device's location tracker with a search orchestrator. The
// tracker's location feeds the orchestrator's origin.
type Session struct {
	ID       string
	DeviceID string
	Tracker  *geolocation.Tracker
	Search   *Orchestrator
	Inbox    *Inbox

	created  time.Time
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Tracker.Close()
	s.Search.Close()
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID            string                   `json:"id"`
	DeviceID      string                   `json:"device_id"`
	Location      geolocation.TrackerState `json:"location"`
	Search        Snapshot                 `json:"search"`
	Notifications []Notification           `json:"notifications,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// View snapshots the session and drains its pending notifications.
func (s *Session) View() SessionView {
	return SessionView{
		ID:            s.ID,
		DeviceID:      s.DeviceID,
		Location:      s.Tracker.State(),
		Search:        s.Search.Snapshot(),
		Notifications: s.Inbox.Drain(),
		CreatedAt:     s.created,
	}
}

// DetectLocation asks the device for a fresh fix.
func (s *Session) DetectLocation(ctx context.Context) (*domain.LocationReading, error) {
	return s.Tracker.Request(ctx)
}

// Registry owns the live search sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	hub      *geolocation.DeviceHub
	searcher Searcher
	geocoder Geocoder
	opts     RegistryOptions
	cron     *cron.Cron
	now      func() time.Time
}

// NewRegistry wires sessions to the device hub and search backend. geocoder
// may be nil, in which case readings carry no address and manual entries no
// coordinates.
func NewRegistry(hub *geolocation.DeviceHub, searcher Searcher, geocoder Geocoder, opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.SweepSpec == "" {
		opts.SweepSpec = "@every 1m"
	}
	return &Registry{
		sessions: make(map[string]*Session),
		hub:      hub,
		searcher: searcher,
		geocoder: geocoder,
		opts:     opts,
		now:      time.Now,
	}
}

// Create opens a session for deviceID, generating a device id when empty, and
// checks the device's permission state.
func (r *Registry) Create(ctx context.Context, deviceID string) *Session {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	src := r.hub.Source(deviceID)
	var resolver geolocation.AddressResolver
	if r.geocoder != nil {
		resolver = r.geocoder
	}
	tracker := geolocation.NewTracker(
		geolocation.NewAcquirer(src, src),
		resolver,
		geolocation.TrackerOptions{Options: r.opts.Location, Watch: true},
	)
	inbox := NewInbox(10)
	orch := NewOrchestrator(r.searcher, inbox, r.opts.Search)

	tracker.OnChange(func(st geolocation.TrackerState) {
		if st.Location == nil || !st.Location.HasPosition() {
			orch.SetOrigin(nil)
			return
		}
		c := st.Location.Coordinate
		orch.SetOrigin(&c)
	})

	now := r.now()
	s := &Session{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Tracker:  tracker,
		Search:   orch,
		Inbox:    inbox,
		created:  now,
		lastSeen: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	tracker.Init(ctx)
	logger.Log.Info("search session opened", "session_id", s.ID, "device_id", deviceID)
	return s
}

// Get returns a live session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// SetManualLocation geocodes address and stores it as the session location.
// When the address cannot be resolved the location keeps the text only and
// the search loses its origin.
func (r *Registry) SetManualLocation(ctx context.Context, s *Session, address string, coord *geo.Coordinate) (domain.LocationReading, error) {
	address = strings.TrimSpace(address)
	if address == "" && coord == nil {
		return domain.LocationReading{}, ErrLocationRequired
	}
	if coord == nil && r.geocoder != nil {
		c, err := r.geocoder.Geocode(ctx, address)
		if err != nil {
			logger.Log.Warn("manual location not geocoded", "session_id", s.ID, "error", err)
		} else {
			coord = &c
		}
	}
	if coord != nil && address == "" && r.geocoder != nil {
		address = r.geocoder.ReverseGeocode(ctx, coord.Latitude, coord.Longitude, "")
	}
	return s.Tracker.SetManual(address, coord), nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL and prunes quiet devices.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)
	var stale []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	devices := r.hub.Prune(r.opts.IdleTTL)
	if len(stale) > 0 || devices > 0 {
		logger.Log.Info("search sessions swept", "sessions", len(stale), "devices", devices)
	}
	return len(stale)
}

// Start schedules Sweep on SweepSpec.
func (r *Registry) Start() error {
	c := cron.New(cron.WithLogger(cron.DefaultLogger))
	if _, err := c.AddFunc(r.opts.SweepSpec, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	r.cron = c
	c.Start()
	logger.Log.Info("session sweeper started", "spec", r.opts.SweepSpec)
	return nil
}

// Stop halts the sweeper, waiting for a running sweep, and closes every session.
func (r *Registry) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
