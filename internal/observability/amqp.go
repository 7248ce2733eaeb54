package observability

import "context"

// Publisher sends JSON events with AMQP headers.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends message through the default publisher, adding the active
// trace id when headers carry none. Without a publisher it does nothing.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	if headers["trace_id"] == "" {
		if traceID := TraceIDFromContext(ctx); traceID != "" {
			if headers == nil {
				headers = map[string]string{}
			}
			headers["trace_id"] = traceID
		}
	}

	if err := defaultPublisher.PublishJSON(ctx, routingKey, message, headers); err != nil {
		IncAMQPPublishError()
		return err
	}
	return nil
}
