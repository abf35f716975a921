// Package geolocation acquires device positions through a pluggable source,
// normalizes failures, and tracks a session's current location.
package geolocation

import (
	"context"
	"time"

	"rigger-connect-backend/internal/domain"
)

// Options mirror the browser PositionOptions. Zero durations take defaults.
type Options struct {
	EnableHighAccuracy bool          `json:"enable_high_accuracy"`
	Timeout            time.Duration `json:"timeout"`
	MaximumAge         time.Duration `json:"maximum_age"`
}

func DefaultOptions() Options {
	return Options{EnableHighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 5 * time.Minute}
}

func DefaultWatchOptions() Options {
	return Options{EnableHighAccuracy: true, Timeout: 15 * time.Second, MaximumAge: time.Minute}
}

func (o Options) merge(def Options) Options {
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.MaximumAge <= 0 {
		o.MaximumAge = def.MaximumAge
	}
	return o
}

// WatchHandle identifies a registered watch. Zero is never a valid handle.
type WatchHandle int64

// PositionSource is the platform position API.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts Options) (domain.LocationReading, error)
	WatchPosition(onUpdate func(domain.LocationReading), onError func(error), opts Options) (WatchHandle, error)
	ClearWatch(h WatchHandle)
}

// PermissionQuerier is the optional permission-query capability.
type PermissionQuerier interface {
	QueryPermission(ctx context.Context) (domain.PermissionState, error)
}

// UserLocationResult is the outcome of GetUserLocation. Location is nil when
// the user has to enter a location by hand.
type UserLocationResult struct {
	Location            *domain.LocationReading `json:"location"`
	RequiresManualEntry bool                    `json:"requires_manual_entry"`
	Error               *LocationError          `json:"error,omitempty"`
	Message             string                  `json:"message,omitempty"`
}

// Acquirer wraps a PositionSource. A nil source means the environment has no
// position API and every call reports UNSUPPORTED.
type Acquirer struct {
	source PositionSource
	perms  PermissionQuerier
}

func NewAcquirer(source PositionSource, perms PermissionQuerier) *Acquirer {
	return &Acquirer{source: source, perms: perms}
}

func (a *Acquirer) Supported() bool {
	return a.source != nil
}

// CheckPermission never fails: without a querier, or when the query errors,
// the state is prompt.
func (a *Acquirer) CheckPermission(ctx context.Context) domain.PermissionState {
	if a.source == nil {
		return domain.PermissionUnsupported
	}
	if a.perms == nil {
		return domain.PermissionPrompt
	}
	state, err := a.perms.QueryPermission(ctx)
	if err != nil || !state.Valid() {
		return domain.PermissionPrompt
	}
	return state
}

// GetCurrentPosition performs a one-shot fix bounded by opts.Timeout.
func (a *Acquirer) GetCurrentPosition(ctx context.Context, opts Options) (domain.LocationReading, error) {
	if a.source == nil {
		return domain.LocationReading{}, NewLocationError(CodeUnsupported)
	}
	opts = opts.merge(DefaultOptions())

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	reading, err := a.source.CurrentPosition(ctx, opts)
	if err != nil {
		return domain.LocationReading{}, Normalize(err)
	}
	reading.IsManual = false
	return reading, nil
}

// WatchPosition registers continuous callbacks. Errors reaching onError are
// always *LocationError. Without a source onError fires once and the zero
// handle is returned.
func (a *Acquirer) WatchPosition(onUpdate func(domain.LocationReading), onError func(*LocationError), opts Options) (WatchHandle, error) {
	if a.source == nil {
		err := NewLocationError(CodeUnsupported)
		if onError != nil {
			onError(err)
		}
		return 0, err
	}
	opts = opts.merge(DefaultWatchOptions())

	return a.source.WatchPosition(
		func(r domain.LocationReading) {
			r.IsManual = false
			if onUpdate != nil {
				onUpdate(r)
			}
		},
		func(err error) {
			if onError != nil {
				onError(Normalize(err))
			}
		},
		opts,
	)
}

func (a *Acquirer) ClearWatch(h WatchHandle) {
	if a.source == nil || h == 0 {
		return
	}
	a.source.ClearWatch(h)
}

// RequestPermission checks the permission state before asking for a fix, so a
// known denial fails fast.
func (a *Acquirer) RequestPermission(ctx context.Context, opts Options) (domain.LocationReading, error) {
	switch a.CheckPermission(ctx) {
	case domain.PermissionUnsupported:
		return domain.LocationReading{}, NewLocationError(CodeUnsupported)
	case domain.PermissionDenied:
		return domain.LocationReading{}, NewLocationError(CodePermissionDenied)
	}
	return a.GetCurrentPosition(ctx, opts)
}

// GetUserLocation never returns an error; failures become a manual-entry result.
func (a *Acquirer) GetUserLocation(ctx context.Context, opts Options) UserLocationResult {
	reading, err := a.RequestPermission(ctx, opts)
	if err != nil {
		locErr := Normalize(err)
		return UserLocationResult{
			RequiresManualEntry: true,
			Error:               locErr,
			Message:             ManualEntryMessage(locErr),
		}
	}
	return UserLocationResult{Location: &reading}
}
