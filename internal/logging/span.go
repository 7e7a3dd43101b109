package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work, such as a token rotation, and logs its outcome.
// The trace id is the request id when one is present so span lines can be
// joined with the access log.
type Span struct {
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan derives a child span of whatever span ctx already carries.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)

	if traceID(ctx) == "" {
		id := RequestIDFromContext(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		ctx = withString(ctx, traceIDKey, id)
		logger = logger.With(slog.String("trace_id", id))
	}

	id := uuid.NewString()
	attrs := []any{slog.String("span", name), slog.String("span_id", id)}
	if parent := spanID(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithLogger(ctx, logger)
	ctx = withString(ctx, spanIDKey, id)
	return ctx, &Span{logger: logger, start: time.Now()}
}

// Fail marks the span as failed; End then logs at warn level with err.
func (s *Span) Fail(err error) {
	if s != nil && err != nil {
		s.err = err
	}
}

// End logs the span duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", elapsed, slog.Any("error", s.err))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
