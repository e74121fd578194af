package notify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// tracedNotifier wraps each delivery in an OpenTelemetry span.
type tracedNotifier struct {
	next   ports.Notifier
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that adds a span per delivery.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName + "/notify")
	return func(next ports.Notifier) ports.Notifier {
		return &tracedNotifier{next: next, tracer: tracer}
	}
}

// Notify executes the delivery within a span.
func (t *tracedNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	ctx, span := t.tracer.Start(ctx, "notify.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("notify.user_id", userID),
			attribute.String("notify.event", string(event)),
		),
	)
	defer span.End()

	err := t.next.Notify(ctx, userID, event, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
