package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType names a security event; it is also the log message.
type EventType string

const (
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventForbiddenAccess    EventType = "forbidden_access"
	EventValidationFailed   EventType = "validation_failed"
	EventInvalidDeviceFix   EventType = "invalid_device_fix"
)

// Everything not listed logs at warn.
var eventLevels = map[EventType]zapcore.Level{
	EventUnauthorizedAccess: zapcore.ErrorLevel,
	EventForbiddenAccess:    zapcore.ErrorLevel,
}

// SecurityEvent is one entry on the security stream. SubjectValue is logged as
// given; helpers hash user and device ids before they get here.
type SecurityEvent struct {
	Event        EventType
	SubjectType  string // "ip", "user_id", "device_id", "system"
	SubjectValue string
	IP           string
	UserAgent    string
	RequestID    string
	Details      map[string]interface{}
}

// SecurityLogger writes security events through zap, apart from the slog
// application log so they can be shipped and retained separately.
type SecurityLogger struct {
	zl *zap.Logger
}

var defaultLogger atomic.Pointer[SecurityLogger]

// InitSecurityLogger builds a JSON zap logger on stdout and installs it as the default.
func InitSecurityLogger(serviceName, environment string) *SecurityLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.MessageKey = "event"
	cfg.OutputPaths = []string{"stdout"}

	zl, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		zl = zap.NewExample()
	}

	sl := NewSecurityLogger(zl, serviceName, environment)
	SetDefault(sl)
	return sl
}

// NewSecurityLogger tags every entry from zl with the service and environment.
func NewSecurityLogger(zl *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zl: zl.Named("security").With(
			zap.String("service", serviceName),
			zap.String("env", environment),
		),
	}
}

// SetDefault replaces the logger returned by DefaultLogger. nil resets it.
func SetDefault(sl *SecurityLogger) {
	defaultLogger.Store(sl)
}

// DefaultLogger returns the installed logger, building a production one on first use.
func DefaultLogger() *SecurityLogger {
	if sl := defaultLogger.Load(); sl != nil {
		return sl
	}
	return InitSecurityLogger("rigger-connect-api", Environment())
}

func (sl *SecurityLogger) Log(_ context.Context, event SecurityEvent) {
	level, ok := eventLevels[event.Event]
	if !ok {
		level = zapcore.WarnLevel
	}
	ce := sl.zl.Check(level, string(event.Event))
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 6)
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, zap.String(key, val))
		}
	}
	add("subject_type", event.SubjectType)
	add("subject_value", event.SubjectValue)
	add("ip", event.IP)
	add("user_agent", event.UserAgent)
	add("request_id", event.RequestID)
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}
	ce.Write(fields...)
}

func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]interface{}{"endpoint": endpoint},
	})
}

// LogUnauthorized logs a rejected token or missing credentials.
func (sl *SecurityLogger) LogUnauthorized(ctx context.Context, ip, userAgent, requestID, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUnauthorizedAccess,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

// LogForbidden logs an authenticated user touching a resource they do not own.
func (sl *SecurityLogger) LogForbidden(ctx context.Context, userID, ip, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventForbiddenAccess,
		SubjectType:  "user_id",
		SubjectValue: HashValue(userID),
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]interface{}{"endpoint": endpoint},
	})
}

// LogValidationFailed records field names only, never submitted values.
func (sl *SecurityLogger) LogValidationFailed(ctx context.Context, ip, requestID, endpoint string, fields []string) {
	sl.Log(ctx, SecurityEvent{
		Event:       EventValidationFailed,
		SubjectType: "ip",
		IP:          ip,
		RequestID:   requestID,
		Details:     map[string]interface{}{"endpoint": endpoint, "fields": fields},
	})
}

// LogInvalidDeviceFix logs a device report that failed coordinate checks.
func (sl *SecurityLogger) LogInvalidDeviceFix(ctx context.Context, deviceID, ip, requestID, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventInvalidDeviceFix,
		SubjectType:  "device_id",
		SubjectValue: HashValue(deviceID),
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

func (sl *SecurityLogger) Sync() error {
	return sl.zl.Sync()
}

// HashValue returns the first 8 bytes of the SHA-256 of value, hex encoded.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}

// Environment maps GIN_MODE to the environment label on security events.
func Environment() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}
