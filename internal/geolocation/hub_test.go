package geolocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fix(lat, lng float64) domain.LocationReading {
	return domain.LocationReading{Coordinate: geo.Coordinate{Latitude: lat, Longitude: lng}, Accuracy: 10}
}

func TestDeviceHub_CurrentPosition(t *testing.T) {
	t.Run("Should serve a cached fix within maximum age", func(t *testing.T) {
		hub := NewDeviceHub()
		require.NoError(t, hub.ReportFix("d1", fix(-31.95, 115.86)))

		got, err := hub.Source("d1").CurrentPosition(context.Background(), Options{MaximumAge: time.Minute})
		require.NoError(t, err)
		assert.Equal(t, -31.95, got.Latitude)

		state, ok := hub.Permission("d1")
		require.True(t, ok)
		assert.Equal(t, domain.PermissionGranted, state)
	})

	t.Run("Should wait for the next report when the cache is stale", func(t *testing.T) {
		hub := NewDeviceHub()
		old := fix(1, 1)
		old.Timestamp = time.Now().Add(-time.Hour)
		require.NoError(t, hub.ReportFix("d1", old))

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = hub.ReportFix("d1", fix(2, 2))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		got, err := hub.Source("d1").CurrentPosition(ctx, Options{MaximumAge: time.Minute})
		require.NoError(t, err)
		assert.Equal(t, 2.0, got.Latitude)
	})

	t.Run("Should time out and normalize to TIMEOUT through the acquirer", func(t *testing.T) {
		hub := NewDeviceHub()
		acq := NewAcquirer(hub.Source("d1"), hub.Source("d1"))
		_, err := acq.GetCurrentPosition(context.Background(), Options{Timeout: 20 * time.Millisecond})
		var locErr *LocationError
		require.ErrorAs(t, err, &locErr)
		assert.Equal(t, CodeTimeout, locErr.Code)
	})

	t.Run("Should deliver reported errors to pending reads", func(t *testing.T) {
		hub := NewDeviceHub()
		go func() {
			time.Sleep(20 * time.Millisecond)
			hub.ReportError("d1", CodePermissionDenied)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := hub.Source("d1").CurrentPosition(ctx, DefaultOptions())
		var locErr *LocationError
		require.ErrorAs(t, err, &locErr)
		assert.Equal(t, CodePermissionDenied, locErr.Code)

		// Denial sticks for later reads
		_, err = hub.Source("d1").CurrentPosition(ctx, DefaultOptions())
		require.ErrorAs(t, err, &locErr)
		assert.Equal(t, CodePermissionDenied, locErr.Code)
	})

	t.Run("Should reject invalid fixes", func(t *testing.T) {
		hub := NewDeviceHub()
		assert.Error(t, hub.ReportFix("d1", fix(100, 0)))
		bad := fix(0, 0)
		bad.Accuracy = -1
		assert.Error(t, hub.ReportFix("d1", bad))
	})
}

func TestDeviceHub_Watch(t *testing.T) {
	hub := NewDeviceHub()
	src := hub.Source("d1")

	var mu sync.Mutex
	var updates []domain.LocationReading
	var errs []error

	h, err := src.WatchPosition(
		func(r domain.LocationReading) { mu.Lock(); updates = append(updates, r); mu.Unlock() },
		func(e error) { mu.Lock(); errs = append(errs, e); mu.Unlock() },
		Options{Timeout: time.Hour, MaximumAge: time.Minute},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, src.WatchCount())

	require.NoError(t, hub.ReportFix("d1", fix(1, 1)))
	require.NoError(t, hub.ReportFix("d1", fix(2, 2)))
	hub.ReportError("d1", CodePositionUnavailable)

	mu.Lock()
	assert.Len(t, updates, 2)
	assert.Len(t, errs, 1)
	mu.Unlock()

	src.ClearWatch(h)
	assert.Equal(t, 0, src.WatchCount())

	require.NoError(t, hub.ReportFix("d1", fix(3, 3)))
	mu.Lock()
	assert.Len(t, updates, 2, "no delivery after clear")
	mu.Unlock()
}

func TestDeviceHub_WatchTimeout(t *testing.T) {
	hub := NewDeviceHub()
	src := hub.Source("d1")

	timeouts := make(chan *LocationError, 4)
	h, err := src.WatchPosition(func(domain.LocationReading) {}, func(e error) {
		select {
		case timeouts <- Normalize(e):
		default:
		}
	}, Options{Timeout: 10 * time.Millisecond, MaximumAge: time.Minute})
	require.NoError(t, err)
	defer src.ClearWatch(h)

	select {
	case e := <-timeouts:
		assert.Equal(t, CodeTimeout, e.Code)
	case <-time.After(time.Second):
		t.Fatal("watch never timed out")
	}
}

func TestDeviceHub_Prune(t *testing.T) {
	hub := NewDeviceHub()
	now := time.Now()
	hub.now = func() time.Time { return now }
	hub.SetPermission("old", domain.PermissionPrompt)

	hub.now = func() time.Time { return now.Add(2 * time.Hour) }
	hub.SetPermission("fresh", domain.PermissionPrompt)

	assert.Equal(t, 1, hub.Prune(time.Hour))
	_, ok := hub.Permission("old")
	assert.False(t, ok)
	_, ok = hub.Permission("fresh")
	assert.True(t, ok)
}

func TestDeviceHub_PruneKeepsWatchedDevices(t *testing.T) {
	t.Run("Should skip an idle device with an active watch", func(t *testing.T) {
		hub := NewDeviceHub()
		now := time.Now()
		hub.now = func() time.Time { return now }
		src := hub.Source("watched")
		h, err := src.WatchPosition(func(domain.LocationReading) {}, func(error) {}, Options{Timeout: time.Hour, MaximumAge: time.Minute})
		require.NoError(t, err)
		defer src.ClearWatch(h)

		hub.now = func() time.Time { return now.Add(2 * time.Hour) }
		assert.Equal(t, 0, hub.Prune(time.Hour))
		assert.Equal(t, 1, src.WatchCount())
	})

	t.Run("Should never drop a watch registered during a prune", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			hub := NewDeviceHub()
			now := time.Now()
			hub.now = func() time.Time { return now }
			hub.SetPermission("d1", domain.PermissionGranted)
			hub.now = func() time.Time { return now.Add(2 * time.Hour) }
			src := hub.Source("d1")

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				hub.Prune(time.Hour)
			}()
			var handle WatchHandle
			go func() {
				defer wg.Done()
				var err error
				handle, err = src.WatchPosition(func(domain.LocationReading) {}, func(error) {}, Options{Timeout: time.Hour, MaximumAge: time.Minute})
				assert.NoError(t, err)
			}()
			wg.Wait()

			require.Equal(t, 1, src.WatchCount(), "iteration %d", i)
			src.ClearWatch(handle)
		}
	})
}
