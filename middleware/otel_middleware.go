package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type OtelConfig struct {
	ServiceName     string
	ServiceVersion  string
	Environment     string
	OTLPEndpoint    string
	Enabled         bool
	MetricsEnabled  bool
	TracesEnabled   bool
	DevelopmentMode bool // 開發模式使用 stdout，生產模式使用 OTLP
}

// 全局遙測變數
var (
	tracer          trace.Tracer
	meter           metric.Meter
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
)

// InitOpenTelemetry 初始化 Traces 與 Metrics；registry 不為 nil 時 otel metrics 一併掛在 /metrics
func InitOpenTelemetry(config OtelConfig, registry *prometheus.Registry, logger zerolog.Logger) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}

	ctx := context.Background()
	var shutdownFuncs []func(context.Context) error

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
		semconv.ServiceInstanceIDKey.String(fmt.Sprintf("%s-%d", config.ServiceName, time.Now().Unix())),
	)

	if config.TracesEnabled {
		traceShutdown, err := setupTraceProvider(ctx, res, config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to setup trace provider: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, traceShutdown)
		tracer = otel.Tracer(config.ServiceName)
	}

	if config.MetricsEnabled {
		metricShutdown, err := setupMeterProvider(ctx, res, config, registry, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to setup meter provider: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, metricShutdown)
		meter = otel.Meter(config.ServiceName)
		if err := initializeMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info().
		Str("service", config.ServiceName).
		Str("version", config.ServiceVersion).
		Str("environment", config.Environment).
		Str("otlp_endpoint", config.OTLPEndpoint).
		Bool("development_mode", config.DevelopmentMode).
		Msg("OpenTelemetry 初始化成功")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, shutdown := range shutdownFuncs {
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Error during OpenTelemetry shutdown")
			}
		}
		logger.Info().Msg("OpenTelemetry 清理完成")
	}, nil
}

// OpenTelemetryMiddleware 每個請求一個 span，並寫入請求日誌
func OpenTelemetryMiddleware(config OtelConfig, logger zerolog.Logger) func(huma.Context, func(huma.Context)) {
	if !config.Enabled {
		return func(ctx huma.Context, next func(huma.Context)) {
			next(ctx)
		}
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		startTime := time.Now()
		route := routeLabel(ctx)

		carrier := &HeaderCarrier{ctx: ctx}
		spanCtx := otel.GetTextMapPropagator().Extract(ctx.Context(), carrier)

		var span trace.Span
		if config.TracesEnabled && tracer != nil {
			spanCtx, span = tracer.Start(spanCtx, fmt.Sprintf("%s %s", ctx.Method(), route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethodKey.String(ctx.Method()),
					semconv.HTTPRouteKey.String(route),
					semconv.HTTPUserAgentKey.String(ctx.Header("User-Agent")),
					attribute.String("net.peer.ip", ctx.RemoteAddr()),
				),
			)
			defer span.End()

			ctx.SetHeader("X-Trace-ID", span.SpanContext().TraceID().String())
			otel.GetTextMapPropagator().Inject(spanCtx, carrier)
		}

		// handler 內的 span 以此為 parent
		next(huma.WithContext(ctx, spanCtx))

		duration := time.Since(startTime)
		statusCode := ctx.Status()

		if config.MetricsEnabled && requestCounter != nil {
			attrs := metric.WithAttributes(
				attribute.String("method", ctx.Method()),
				attribute.String("route", route),
				attribute.String("status_class", fmt.Sprintf("%dxx", statusCode/100)),
			)
			requestCounter.Add(spanCtx, 1, attrs)
			requestDuration.Record(spanCtx, duration.Seconds(), attrs)
		}

		if span != nil {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))
			switch {
			case statusCode >= 500:
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
			case statusCode >= 400:
				span.SetStatus(codes.Error, fmt.Sprintf("Client Error %d", statusCode))
			default:
				span.SetStatus(codes.Ok, "")
			}
		}

		logEvent := logger.Info()
		if statusCode >= 500 {
			logEvent = logger.Error()
		} else if statusCode >= 400 {
			logEvent = logger.Warn()
		}
		if span != nil {
			logEvent = logEvent.Str("trace_id", span.SpanContext().TraceID().String())
		}
		logEvent.
			Str("method", ctx.Method()).
			Str("path", ctx.URL().Path).
			Int("status_code", statusCode).
			Float64("duration_ms", float64(duration.Nanoseconds())/1e6).
			Str("remote_addr", ctx.RemoteAddr()).
			Msg("HTTP request completed")
	}
}

func setupTraceProvider(ctx context.Context, res *resource.Resource, config OtelConfig, logger zerolog.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if config.DevelopmentMode {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		logger.Info().Msg("使用 stdout trace exporter（開發模式）")
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		logger.Info().Str("endpoint", config.OTLPEndpoint).Msg("使用 OTLP gRPC trace exporter（生產模式）")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func setupMeterProvider(ctx context.Context, res *resource.Resource, config OtelConfig, registry *prometheus.Registry, logger zerolog.Logger) (func(context.Context) error, error) {
	mpOptions := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if registry != nil {
		promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mpOptions = append(mpOptions, sdkmetric.WithReader(promExporter))
	}

	if config.DevelopmentMode {
		stdoutExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		mpOptions = append(mpOptions, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(stdoutExporter,
			sdkmetric.WithInterval(30*time.Second))))
	} else {
		otlpExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("無法創建 OTLP metric exporter，將只使用 Prometheus")
		} else {
			mpOptions = append(mpOptions, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(otlpExporter,
				sdkmetric.WithInterval(30*time.Second))))
		}
	}

	mp := sdkmetric.NewMeterProvider(mpOptions...)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// initializeMetrics 名稱與 prometheus 中間件的 http_* 區隔
func initializeMetrics() error {
	var err error

	requestCounter, err = meter.Int64Counter(
		"otel.http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	requestDuration, err = meter.Float64Histogram(
		"otel.http.server.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	return nil
}

// HeaderCarrier 實現 propagation.TextMapCarrier 接口
type HeaderCarrier struct {
	ctx huma.Context
}

func (h *HeaderCarrier) Get(key string) string {
	return h.ctx.Header(key)
}

func (h *HeaderCarrier) Set(key, value string) {
	h.ctx.SetHeader(key, value)
}

// Keys huma.Context 無法列出所有 header，extract 不需要
func (h *HeaderCarrier) Keys() []string {
	return []string{}
}
