package webhooks

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "certchain/webhooks"

var (
	metricsOnce   sync.Once
	sharedMetrics *deliveryMetrics
)

type deliveryMetrics struct {
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
}

func dispatcherMetrics() *deliveryMetrics {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		fallback := noop.NewMeterProvider().Meter(meterName)
		delivered, err := meter.Int64Counter("certchain.webhooks.delivered")
		if err != nil {
			delivered, _ = fallback.Int64Counter("certchain.webhooks.delivered")
		}
		dropped, err := meter.Int64Counter("certchain.webhooks.dropped")
		if err != nil {
			dropped, _ = fallback.Int64Counter("certchain.webhooks.dropped")
		}
		sharedMetrics = &deliveryMetrics{delivered: delivered, dropped: dropped}
	})
	return sharedMetrics
}

func (m *deliveryMetrics) recordDelivered(eventType string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", eventType)))
}

// recordDropped counts events that never reached the subscriber. reason is
// "overflow" or "abandoned".
func (m *deliveryMetrics) recordDropped(reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
