package usecase

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthUsecase interface {
	// Check reports "ok" when the database answers. Redis is optional, so a
	// failing cache only marks the service degraded.
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	db    Pinger
	cache func(ctx context.Context) error
}

// NewHealthUsecase takes the database and an optional cache probe.
func NewHealthUsecase(db Pinger, cache func(ctx context.Context) error) HealthUsecase {
	return &healthUsecase{db: db, cache: cache}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{
		"status":   "ok",
		"database": "up",
		"cache":    "memory",
	}
	healthy := true

	if u.db == nil {
		status["database"] = "not configured"
	} else if err := u.db.Ping(ctx); err != nil {
		status["database"] = "down"
		status["status"] = "unavailable"
		healthy = false
	}

	if u.cache != nil {
		if err := u.cache(ctx); err != nil {
			status["cache"] = "down"
			if healthy {
				status["status"] = "degraded"
			}
		} else {
			status["cache"] = "redis"
		}
	}
	return status, healthy
}
