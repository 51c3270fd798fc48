package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldServer     = "server"
	FieldScope      = "scope"
	FieldStatus     = "status"
	FieldErrorKind  = "errorKind"
	FieldDurationMs = "duration_ms"
)

const (
	EventStartAttempt       = "start_attempt"
	EventStartSuccess       = "start_success"
	EventStartFailure       = "start_failure"
	EventStopSuccess        = "stop_success"
	EventStopFailure        = "stop_failure"
	EventHealthCheckFailure = "health_check_failure"
	EventReconnectScheduled = "reconnect_scheduled"
	EventReconnectAttempt   = "reconnect_attempt"
	EventReconnectCancelled = "reconnect_cancelled"
	EventConfigReload       = "config_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ServerField(server string) zap.Field {
	return zap.String(FieldServer, server)
}

func ScopeField(scope string) zap.Field {
	return zap.String(FieldScope, scope)
}

func StatusField(status string) zap.Field {
	return zap.String(FieldStatus, status)
}

func ErrorKindField(kind string) zap.Field {
	return zap.String(FieldErrorKind, kind)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}
