package geolocation

import (
	"context"
	"sync"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/geo"
)

// PermissionLoading is reported until the first permission check completes.
const PermissionLoading domain.PermissionState = "loading"

// AddressResolver labels coordinates; *geocoding.Resolver satisfies it.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64, preferred string) string
}

type TrackerOptions struct {
	Options
	// Watch keeps a continuous watch open once permission is granted.
	Watch bool
}

// TrackerState is a snapshot of a session's location.
type TrackerState struct {
	Location   *domain.LocationReading `json:"location"`
	Permission domain.PermissionState  `json:"permission"`
	Loading    bool                    `json:"loading"`
	Error      string                  `json:"error,omitempty"`
}

// Tracker holds one session's location: permission status, the latest
// reading, and an optional continuous watch. Listeners run after every change,
// outside the lock, in registration order.
type Tracker struct {
	mu        sync.Mutex
	acq       *Acquirer
	resolver  AddressResolver
	opts      TrackerOptions
	state     TrackerState
	watch     WatchHandle
	fixSeq    uint64
	closed    bool
	listeners []func(TrackerState)
}

// NewTracker starts in the loading permission state; call Init to resolve it.
// resolver may be nil, in which case readings carry no address.
func NewTracker(acq *Acquirer, resolver AddressResolver, opts TrackerOptions) *Tracker {
	opts.Options = opts.Options.merge(DefaultOptions())
	return &Tracker{
		acq:      acq,
		resolver: resolver,
		opts:     opts,
		state:    TrackerState{Permission: PermissionLoading},
	}
}

// OnChange registers fn to receive every state change.
func (t *Tracker) OnChange(fn func(TrackerState)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// snapshot copies the state. Caller holds t.mu.
func (t *Tracker) snapshot() TrackerState {
	s := t.state
	if s.Location != nil {
		loc := *s.Location
		s.Location = &loc
	}
	return s
}

// update applies fn under the lock and notifies listeners afterwards.
func (t *Tracker) update(fn func(s *TrackerState)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	fn(&t.state)
	snap := t.snapshot()
	listeners := append([]func(TrackerState){}, t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Init checks the current permission state and starts the watch when it is
// already granted.
func (t *Tracker) Init(ctx context.Context) domain.PermissionState {
	state := t.acq.CheckPermission(ctx)
	t.update(func(s *TrackerState) { s.Permission = state })
	if state == domain.PermissionGranted {
		t.startWatch()
	}
	return state
}

// Request asks for a fresh fix. On failure the error message is stored and the
// reading is left unchanged; a denial or missing API also updates the
// permission state.
func (t *Tracker) Request(ctx context.Context) (*domain.LocationReading, error) {
	t.update(func(s *TrackerState) {
		s.Loading = true
		s.Error = ""
	})

	res := t.acq.GetUserLocation(ctx, t.opts.Options)
	if res.Location == nil {
		t.update(func(s *TrackerState) {
			s.Loading = false
			s.Error = res.Message
			switch {
			case res.Error.Code == CodePermissionDenied:
				s.Permission = domain.PermissionDenied
			case res.Error.Unsupported():
				s.Permission = domain.PermissionUnsupported
			}
		})
		return nil, res.Error
	}

	reading := t.label(ctx, *res.Location)
	t.update(func(s *TrackerState) {
		s.Loading = false
		s.Location = &reading
		s.Permission = domain.PermissionGranted
	})
	t.startWatch()
	return &reading, nil
}

// SetManual records a typed location. coord is the geocoded position of
// address, or nil when it could not be resolved.
func (t *Tracker) SetManual(address string, coord *geo.Coordinate) domain.LocationReading {
	reading := domain.LocationReading{
		Address:   address,
		IsManual:  true,
		Timestamp: time.Now(),
	}
	if coord != nil {
		reading.Coordinate = *coord
	}
	t.update(func(s *TrackerState) {
		s.Location = &reading
		s.Error = ""
	})
	return reading
}

// Clear drops the reading and error and releases the watch.
func (t *Tracker) Clear() {
	t.stopWatch()
	t.update(func(s *TrackerState) {
		s.Location = nil
		s.Error = ""
	})
}

// Retry clears and requests again.
func (t *Tracker) Retry(ctx context.Context) (*domain.LocationReading, error) {
	t.Clear()
	return t.Request(ctx)
}

// Close releases the watch and stops notifications. It is idempotent.
func (t *Tracker) Close() {
	t.stopWatch()
	t.mu.Lock()
	t.closed = true
	t.listeners = nil
	t.mu.Unlock()
}

// Watching reports whether a continuous watch is registered.
func (t *Tracker) Watching() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.watch != 0
}

func (t *Tracker) startWatch() {
	if !t.opts.Watch {
		return
	}
	t.mu.Lock()
	if t.watch != 0 || t.closed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	// Watches get twice the one-shot timeout.
	watchOpts := t.opts.Options
	watchOpts.Timeout = 2 * t.opts.Timeout

	h, err := t.acq.WatchPosition(t.onWatchUpdate, t.onWatchError, watchOpts)
	if err != nil || h == 0 {
		return
	}

	t.mu.Lock()
	if t.watch != 0 || t.closed {
		t.mu.Unlock()
		t.acq.ClearWatch(h)
		return
	}
	t.watch = h
	t.mu.Unlock()
}

func (t *Tracker) stopWatch() {
	t.mu.Lock()
	h := t.watch
	t.watch = 0
	t.mu.Unlock()
	if h != 0 {
		t.acq.ClearWatch(h)
	}
}

// onWatchUpdate labels off the reporting goroutine; a label that finishes
// after a newer fix arrived is dropped.
func (t *Tracker) onWatchUpdate(r domain.LocationReading) {
	t.mu.Lock()
	t.fixSeq++
	seq := t.fixSeq
	t.mu.Unlock()

	go func() {
		r = t.label(context.Background(), r)
		t.update(func(s *TrackerState) {
			if t.fixSeq != seq {
				return
			}
			s.Location = &r
			s.Error = ""
		})
	}()
}

func (t *Tracker) onWatchError(err *LocationError) {
	t.update(func(s *TrackerState) { s.Error = err.Message })
}

func (t *Tracker) label(ctx context.Context, r domain.LocationReading) domain.LocationReading {
	if t.resolver == nil || r.Address != "" {
		return r
	}
	return r.WithAddress(t.resolver.ReverseGeocode(ctx, r.Latitude, r.Longitude, ""))
}
