package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/repository"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// Recorder receives business metrics. observability.Metrics implements it.
type Recorder interface {
	TicketAction(action, outcome string)
	SweepCompleted(processed int, err error)
}

type noopRecorder struct{}

func (noopRecorder) TicketAction(string, string) {}
func (noopRecorder) SweepCompleted(int, error)   {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Outcome labels reported to the Recorder.
const (
	outcomeApplied   = "applied"
	outcomeForbidden = "forbidden"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeApplied
	case apperrors.IsForbidden(err):
		return outcomeForbidden
	case apperrors.IsConflict(err), apperrors.IsValidation(err), apperrors.IsNotFound(err):
		return outcomeRejected
	default:
		return outcomeError
	}
}

// notFound turns a missing row into a NotFound domain error and passes
// other errors through the generic mapping.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return mapStoreError(err)
}

// mapStoreError surfaces lost optimistic-concurrency races as Conflict.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrStaleWrite) {
		return apperrors.NewConflict("the record was modified concurrently; reload and retry", nil)
	}
	return apperrors.MapError(err)
}

func requireRole(caller domain.Caller, role domain.Role) error {
	if caller.Role != role {
		return apperrors.NewForbidden(string(role) + " role required")
	}
	return nil
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event, now time.Time) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	_ = dispatcher.Publish(ctx, event)
}

func callerActor(caller domain.Caller) events.Actor {
	id := caller.UserID
	return events.Actor{Role: string(caller.Role), UserID: &id}
}

// trimmedPtr treats blank strings as absent.
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
