// Package observability wires OpenTelemetry tracing and metrics for flow runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowkit"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("flowkit"))
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("flowkit"))
//
// The flow package records into Metrics and opens spans through StartSpan;
// with no provider configured both fall back to the global no-op providers.
package observability
