package observability

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-contact-book/internal/config"
)

// keepGlobals restores the global provider and propagator after the test.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

// captureExports swaps the OTLP exporter for an in-memory one.
func captureExports(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	mem := tracetest.NewInMemoryExporter()
	orig := exporterFor
	exporterFor = func(context.Context, otlptrace.Client) (sdktrace.SpanExporter, error) { return mem, nil }
	t.Cleanup(func() { exporterFor = orig })
	return mem
}

func enabledCfg(insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    insecure,
		ServiceName: "contact-book-test",
		SampleRatio: 1,
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Endpoint: "unused:1"}, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupOTel = (%v, %v)", shutdown, err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("provider replaced while disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupOTel_ExportsServiceSpans(t *testing.T) {
	keepGlobals(t)
	mem := captureExports(t)

	shutdown, err := SetupOTel(context.Background(), enabledCfg(true), "1.4.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := Tracer("ContactBook").Start(context.Background(), "SubmitContact")
	span.End()
	// Shutdown would reset the in-memory exporter, so flush instead.
	if err := otel.GetTracerProvider().(*sdktrace.TracerProvider).ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := mem.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans; want 1", len(spans))
	}
	s := spans[0]
	if s.Name != "SubmitContact" || s.InstrumentationScope.Name != "services/ContactBook" {
		t.Fatalf("span = %q scope %q", s.Name, s.InstrumentationScope.Name)
	}
	attrs := map[string]string{}
	for _, kv := range s.Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["service.name"] != "contact-book-test" || attrs["service.version"] != "1.4.0" {
		t.Fatalf("resource attributes: %v", attrs)
	}
}

func TestSetupOTel_InstallsPropagators(t *testing.T) {
	keepGlobals(t)
	captureExports(t)

	shutdown, err := SetupOTel(context.Background(), enabledCfg(false), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := otel.Tracer("outbound-client").Start(context.Background(), "outbound")
	defer span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	tp := carrier.Get("traceparent")
	if !strings.Contains(tp, span.SpanContext().TraceID().String()) {
		t.Fatalf("traceparent %q does not carry trace id", tp)
	}
	fields := otel.GetTextMapPropagator().Fields()
	slices.Sort(fields)
	if strings.Join(fields, ",") != "baggage,traceparent,tracestate" {
		t.Fatalf("propagator fields = %v", fields)
	}
}

func TestSetupOTel_FailuresKeepGlobals(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"exporter": func(t *testing.T) {
			orig := exporterFor
			exporterFor = func(context.Context, otlptrace.Client) (sdktrace.SpanExporter, error) {
				return nil, errors.New("dial refused")
			}
			t.Cleanup(func() { exporterFor = orig })
		},
		"resource": func(t *testing.T) {
			captureExports(t)
			orig := resourceFor
			resourceFor = func(context.Context, config.OTELConfig, string) (*resource.Resource, error) {
				return nil, errors.New("bad schema")
			}
			t.Cleanup(func() { resourceFor = orig })
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			keepGlobals(t)
			breakIt(t)
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			if _, err := SetupOTel(context.Background(), enabledCfg(true), "v0"); err == nil {
				t.Fatalf("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestSetupOTel_RealExporterIsLazy(t *testing.T) {
	keepGlobals(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nothing listens on the endpoint; the gRPC client must not dial eagerly.
	shutdown, err := SetupOTel(ctx, enabledCfg(true), "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("provider is %T", otel.GetTracerProvider())
	}
	sctx, stop := context.WithCancel(context.Background())
	stop()
	_ = shutdown(sctx)
}

func TestSampler(t *testing.T) {
	cases := []struct {
		ratio float64
		root  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range cases {
		d := sampler(tc.ratio).Description()
		if !strings.HasPrefix(d, "ParentBased{root:"+tc.root+",") {
			t.Errorf("sampler(%v) = %s", tc.ratio, d)
		}
	}
}

func TestInstrumentDB(t *testing.T) {
	orig := gormTracing
	t.Cleanup(func() { gormTracing = orig })
	built := 0
	gormTracing = func() gorm.Plugin { built++; return orig() }

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := InstrumentDB(nil, config.OTELConfig{Enabled: true}); err != nil {
		t.Fatalf("nil db: %v", err)
	}
	if err := InstrumentDB(db, config.OTELConfig{}); err != nil || built != 0 {
		t.Fatalf("disabled: err=%v built=%d", err, built)
	}

	if err := InstrumentDB(db, config.OTELConfig{Enabled: true}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, ok := db.Config.Plugins["otelgorm"]; !ok {
		t.Fatalf("plugin not registered: %v", db.Config.Plugins)
	}
	if err := InstrumentDB(db, config.OTELConfig{Enabled: true}); err == nil || !strings.Contains(err.Error(), "gorm tracing plugin") {
		t.Fatalf("second registration = %v", err)
	}

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Fatalf("query with plugin: %d, %v", one, err)
	}
}
