package apiclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "medreserve/apiclient"

type telemetry struct {
	tracer    trace.Tracer
	requests  metric.Int64Counter
	refreshes metric.Int64Counter
	duration  metric.Int64Histogram
	attrs     []attribute.KeyValue
}

func newTelemetry(mp metric.MeterProvider, tp trace.TracerProvider, attrs []attribute.KeyValue) (*telemetry, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(attrs...),
	)

	t := &telemetry{
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationAttributes(attrs...)),
		attrs:  attrs,
	}

	var err error
	t.requests, err = meter.Int64Counter(
		"medreserve.client.request_count",
		metric.WithDescription("Outgoing request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, oops.In("API Client").Wrapf(err, "creating request_count meter")
	}

	t.refreshes, err = meter.Int64Counter(
		"medreserve.client.refresh_count",
		metric.WithDescription("Access token refresh count"),
		metric.WithUnit("refresh"),
	)
	if err != nil {
		return nil, oops.In("API Client").Wrapf(err, "creating refresh_count meter")
	}

	t.duration, err = meter.Int64Histogram(
		"medreserve.client.duration",
		metric.WithDescription("Outgoing request end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, oops.In("API Client").Wrapf(err, "creating duration meter")
	}

	return t, nil
}

func (t *telemetry) refreshed(ctx context.Context, outcome string) {
	t.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// tracingMiddleware opens a client span per request and propagates it to the
// backend through the configured text map propagator.
func (t *telemetry) tracingMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, span := t.tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(t.attrs...),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.path", req.URL.Path),
				),
			)
			defer span.End()

			req = req.Clone(ctx)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

			resp, err := next.RoundTrip(req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}

			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, resp.Status)
			}

			return resp, nil
		})
	}
}

func (t *telemetry) metricsMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			status := "error"
			if err == nil {
				status = strconv.Itoa(resp.StatusCode)
			}

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("http.response.status_code", status),
			)
			t.requests.Add(req.Context(), 1, attrs)
			t.duration.Record(req.Context(), time.Since(start).Milliseconds(), attrs)

			return resp, err
		})
	}
}
