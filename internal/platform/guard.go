package platform

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskbridge/internal/platform"

// guard wraps a constructed platform. Every operation gets a span, an
// optional timeout, and errors normalized to *Error; deletes of missing
// tasks succeed whatever the implementation returns.
type guard struct {
	inner   Platform
	id      ID
	userID  string
	timeout time.Duration
	tracer  trace.Tracer
	logger  *log.Logger
}

func newGuard(p Platform, id ID, userID string, timeout time.Duration, logger *log.Logger) *guard {
	return &guard{
		inner:   p,
		id:      id,
		userID:  userID,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// Unwrap returns the platform built by the constructor.
func (g *guard) Unwrap() Platform { return g.inner }

func (g *guard) CreateTask(ctx context.Context, task TaskRecord) (ExternalTaskID, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}
	ctx, span, cancel := g.begin(ctx, "CreateTask")
	defer cancel()
	start := time.Now()

	id, err := g.inner.CreateTask(ctx, task)
	if err == nil && id == "" {
		err = errors.New("platform returned an empty task id")
	}
	if err == nil {
		span.SetAttributes(attribute.String("task.id", string(id)))
	}
	if err := g.finish(ctx, span, "CreateTask", start, err); err != nil {
		return "", err
	}
	return id, nil
}

func (g *guard) UpdateTask(ctx context.Context, id ExternalTaskID, patch TaskPatch) error {
	ctx, span, cancel := g.begin(ctx, "UpdateTask")
	defer cancel()
	span.SetAttributes(attribute.String("task.id", string(id)))
	start := time.Now()

	return g.finish(ctx, span, "UpdateTask", start, g.inner.UpdateTask(ctx, id, patch))
}

func (g *guard) DeleteTask(ctx context.Context, id ExternalTaskID) error {
	ctx, span, cancel := g.begin(ctx, "DeleteTask")
	defer cancel()
	span.SetAttributes(attribute.String("task.id", string(id)))
	start := time.Now()

	err := g.inner.DeleteTask(ctx, id)
	if errors.Is(err, ErrNotFound) {
		g.logger.WithFields(g.fields("DeleteTask")).WithField("task_id", string(id)).Debug("platform.delete.already_gone")
		err = nil
	}
	return g.finish(ctx, span, "DeleteTask", start, err)
}

func (g *guard) ListTasks(ctx context.Context, filter TaskFilter) iter.Seq2[TaskRecord, error] {
	return func(yield func(TaskRecord, error) bool) {
		ctx, span, cancel := g.begin(ctx, "ListTasks")
		defer cancel()
		start := time.Now()

		n := 0
		var failed error
		for rec, err := range g.inner.ListTasks(ctx, filter) {
			if err != nil {
				failed = err
				break
			}
			if err := ctx.Err(); err != nil {
				failed = err
				break
			}
			if filter.Limit > 0 && n >= filter.Limit {
				break
			}
			n++
			if !yield(rec, nil) {
				break
			}
		}
		span.SetAttributes(attribute.Int("task.count", n))
		if err := g.finish(ctx, span, "ListTasks", start, failed); err != nil {
			yield(TaskRecord{}, err)
		}
	}
}

func (g *guard) ValidateCredentials(ctx context.Context) error {
	ctx, span, cancel := g.begin(ctx, "ValidateCredentials")
	defer cancel()
	start := time.Now()

	return g.finish(ctx, span, "ValidateCredentials", start, g.inner.ValidateCredentials(ctx))
}

func (g *guard) begin(ctx context.Context, op string) (context.Context, trace.Span, context.CancelFunc) {
	ctx, span := g.tracer.Start(ctx, "platform."+op,
		trace.WithAttributes(
			attribute.String("platform.id", string(g.id)),
			attribute.String("user.id", g.userID),
		),
	)
	if g.timeout <= 0 {
		return ctx, span, func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	return ctx, span, cancel
}

// finish ends the span and returns err normalized to *Error.
// A context that expired during the call is folded into the error so the
// caller sees a timeout rather than whatever the transport reported.
func (g *guard) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) error {
	defer span.End()

	fields := g.fields(op)
	fields["duration_ms"] = float64(time.Since(start)) / float64(time.Millisecond)

	if err == nil {
		span.SetStatus(codes.Ok, "")
		g.logger.WithFields(fields).Debug("platform.op")
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	err = wrapOpError(g.id, op, err)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields["error"] = err.Error()
	if IsTimeout(err) {
		fields["timeout"] = true
	}
	g.logger.WithFields(fields).Warn("platform.op.failed")
	return err
}

func (g *guard) fields(op string) log.Fields {
	return log.Fields{
		"platform": string(g.id),
		"user_id":  g.userID,
		"op":       op,
	}
}
