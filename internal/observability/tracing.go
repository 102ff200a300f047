package observability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Span times one operation. Spans started from a context holding another
// span share its trace ID and record it as parent.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Start     time.Time
	Duration  time.Duration

	attrs []slog.Attr
	err   error
	ended bool
}

type spanContextKey struct{}

func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newSpanID(),
		Operation: operation,
		Start:     time.Now(),
	}

	if parent := GetSpan(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = newTraceID()
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// SetTag records a string attribute, replacing an earlier value for key.
func (s *Span) SetTag(key, value string) {
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.StringValue(value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.String(key, value))
}

func (s *Span) Tag(key string) (string, bool) {
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.String(), true
		}
	}
	return "", false
}

func (s *Span) SetError(err error) {
	if err != nil {
		s.err = err
	}
}

func (s *Span) Err() error { return s.err }

// End stops the clock and logs the span at debug level, or warn when it
// failed. Only the first call has any effect.
func (s *Span) End(ctx context.Context, logger *slog.Logger) {
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.Start)
	if logger == nil {
		return
	}

	level := slog.LevelDebug
	attrs := make([]slog.Attr, 0, len(s.attrs)+6)
	attrs = append(attrs,
		slog.String("operation", s.Operation),
		slog.String("trace_id", s.TraceID),
		slog.String("span_id", s.SpanID),
		slog.Duration("duration", s.Duration),
	)
	if s.ParentID != "" {
		attrs = append(attrs, slog.String("parent_id", s.ParentID))
	}
	attrs = append(attrs, s.attrs...)
	if s.err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", s.err.Error()))
	}
	logger.LogAttrs(ctx, level, "span finished", attrs...)
}

func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newSpanID() string {
	return newTraceID()[:16]
}
