package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"rigger-connect-backend/internal/domain"
)

var errPermissionUnknown = errors.New("geolocation: device has not reported a permission state")

// DeviceHub is the server-side position platform. Browsers push fixes, errors
// and permission changes for a device id; sessions read them back through a
// DeviceSource, which implements PositionSource and PermissionQuerier.
type DeviceHub struct {
	mu        sync.Mutex
	devices   map[string]*device
	nextWatch int64
	now       func() time.Time
}

type device struct {
	permission domain.PermissionState
	last       *domain.LocationReading
	waiters    map[chan outcome]struct{}
	watches    map[WatchHandle]*watcher
	seen       time.Time
}

type outcome struct {
	reading domain.LocationReading
	err     error
}

type watcher struct {
	onUpdate func(domain.LocationReading)
	onError  func(error)
	timeout  time.Duration
	timer    *time.Timer
}

func NewDeviceHub() *DeviceHub {
	return &DeviceHub{
		devices: make(map[string]*device),
		now:     time.Now,
	}
}

// device returns the entry for id, creating it. Caller holds h.mu.
func (h *DeviceHub) device(id string) *device {
	d, ok := h.devices[id]
	if !ok {
		d = &device{
			waiters: make(map[chan outcome]struct{}),
			watches: make(map[WatchHandle]*watcher),
		}
		h.devices[id] = d
	}
	d.seen = h.now()
	return d
}

// Source returns the position source for one device.
func (h *DeviceHub) Source(id string) *DeviceSource {
	h.mu.Lock()
	h.device(id)
	h.mu.Unlock()
	return &DeviceSource{hub: h, id: id}
}

// ReportFix records a new reading and delivers it to pending one-shot reads and
// active watches. A fix implies the permission was granted.
func (h *DeviceHub) ReportFix(id string, r domain.LocationReading) error {
	if !r.Coordinate.Valid() {
		return errors.New("geolocation: coordinate out of range")
	}
	if r.Accuracy < 0 {
		return errors.New("geolocation: accuracy must be non-negative")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = h.now()
	}
	r.IsManual = false

	h.mu.Lock()
	d := h.device(id)
	d.last = &r
	d.permission = domain.PermissionGranted
	waiters := d.drainWaiters()
	var updates []func(domain.LocationReading)
	for _, w := range d.watches {
		w.timer.Reset(w.timeout)
		updates = append(updates, w.onUpdate)
	}
	h.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome{reading: r}
	}
	for _, fn := range updates {
		fn(r)
	}
	return nil
}

// ReportError delivers a platform failure to readers and watches.
func (h *DeviceHub) ReportError(id string, code ErrorCode) {
	err := NewLocationError(code)

	h.mu.Lock()
	d := h.device(id)
	if code == CodePermissionDenied {
		d.permission = domain.PermissionDenied
	}
	waiters := d.drainWaiters()
	var handlers []func(error)
	for _, w := range d.watches {
		handlers = append(handlers, w.onError)
	}
	h.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome{err: err}
	}
	for _, fn := range handlers {
		fn(err)
	}
}

func (h *DeviceHub) SetPermission(id string, state domain.PermissionState) {
	h.mu.Lock()
	h.device(id).permission = state
	h.mu.Unlock()
}

func (h *DeviceHub) Permission(id string) (domain.PermissionState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.devices[id]
	if !ok || d.permission == "" {
		return "", false
	}
	return d.permission, true
}

func (h *DeviceHub) Last(id string) (domain.LocationReading, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.devices[id]
	if !ok || d.last == nil {
		return domain.LocationReading{}, false
	}
	return *d.last, true
}

// Remove forgets a device, failing pending reads and stopping its watches.
func (h *DeviceHub) Remove(id string) {
	h.mu.Lock()
	d, ok := h.devices[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.devices, id)
	waiters := d.drainWaiters()
	for _, w := range d.watches {
		w.timer.Stop()
	}
	h.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome{err: NewLocationError(CodePositionUnavailable)}
	}
}

// Prune removes devices with no activity for idle and no active watches or
// pending reads. Selection and removal happen under one lock, so a watch
// registered concurrently keeps its device.
func (h *DeviceHub) Prune(idle time.Duration) int {
	cutoff := h.now().Add(-idle)

	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, d := range h.devices {
		if d.seen.Before(cutoff) && len(d.watches) == 0 && len(d.waiters) == 0 {
			delete(h.devices, id)
			n++
		}
	}
	return n
}

func (d *device) drainWaiters() []chan outcome {
	out := make([]chan outcome, 0, len(d.waiters))
	for ch := range d.waiters {
		out = append(out, ch)
	}
	clear(d.waiters)
	return out
}

// DeviceSource reads one device's reports.
type DeviceSource struct {
	hub *DeviceHub
	id  string
}

func (s *DeviceSource) DeviceID() string { return s.id }

// CurrentPosition returns the cached fix when it is within opts.MaximumAge,
// otherwise waits for the next report until ctx is done.
func (s *DeviceSource) CurrentPosition(ctx context.Context, opts Options) (domain.LocationReading, error) {
	h := s.hub
	h.mu.Lock()
	d := h.device(s.id)
	if d.permission == domain.PermissionDenied {
		h.mu.Unlock()
		return domain.LocationReading{}, NewLocationError(CodePermissionDenied)
	}
	if d.last != nil && h.now().Sub(d.last.Timestamp) <= opts.MaximumAge {
		r := *d.last
		h.mu.Unlock()
		return r, nil
	}
	ch := make(chan outcome, 1)
	d.waiters[ch] = struct{}{}
	h.mu.Unlock()

	select {
	case out := <-ch:
		return out.reading, out.err
	case <-ctx.Done():
		h.mu.Lock()
		delete(d.waiters, ch)
		h.mu.Unlock()
		// A report may have raced the deadline.
		select {
		case out := <-ch:
			return out.reading, out.err
		default:
		}
		return domain.LocationReading{}, ctx.Err()
	}
}

// WatchPosition delivers every subsequent fix. A cached fix within
// opts.MaximumAge is delivered straight away. If no fix arrives within
// opts.Timeout, onError receives TIMEOUT and the watch keeps running.
func (s *DeviceSource) WatchPosition(onUpdate func(domain.LocationReading), onError func(error), opts Options) (WatchHandle, error) {
	h := s.hub
	h.mu.Lock()
	d := h.device(s.id)
	if d.permission == domain.PermissionDenied {
		h.mu.Unlock()
		err := NewLocationError(CodePermissionDenied)
		onError(err)
		return 0, err
	}

	h.nextWatch++
	handle := WatchHandle(h.nextWatch)
	w := &watcher{onUpdate: onUpdate, onError: onError, timeout: opts.Timeout}
	w.timer = time.AfterFunc(opts.Timeout, func() { s.watchTimedOut(handle) })
	d.watches[handle] = w

	var cached *domain.LocationReading
	if d.last != nil && h.now().Sub(d.last.Timestamp) <= opts.MaximumAge {
		r := *d.last
		cached = &r
	}
	h.mu.Unlock()

	if cached != nil {
		go onUpdate(*cached)
	}
	return handle, nil
}

func (s *DeviceSource) watchTimedOut(handle WatchHandle) {
	h := s.hub
	h.mu.Lock()
	d, ok := h.devices[s.id]
	if !ok {
		h.mu.Unlock()
		return
	}
	w, ok := d.watches[handle]
	if !ok {
		h.mu.Unlock()
		return
	}
	w.timer.Reset(w.timeout)
	h.mu.Unlock()

	w.onError(NewLocationError(CodeTimeout))
}

func (s *DeviceSource) ClearWatch(handle WatchHandle) {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.devices[s.id]
	if !ok {
		return
	}
	if w, ok := d.watches[handle]; ok {
		w.timer.Stop()
		delete(d.watches, handle)
	}
}

// QueryPermission reports the last state the browser sent.
func (s *DeviceSource) QueryPermission(_ context.Context) (domain.PermissionState, error) {
	if state, ok := s.hub.Permission(s.id); ok {
		return state, nil
	}
	return "", errPermissionUnknown
}

// WatchCount is the number of active watches on the device.
func (s *DeviceSource) WatchCount() int {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.devices[s.id]; ok {
		return len(d.watches)
	}
	return 0
}
