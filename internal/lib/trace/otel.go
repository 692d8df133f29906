// Package trace sets up the OpenTelemetry pipeline that receives the
// scenario, step and finalization spans of a run.
package trace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/liuxd6825/webaccept/version"
)

const (
	serviceName = "webaccept"

	// TracerName is the instrumentation scope of every harness span.
	TracerName = "github.com/liuxd6825/webaccept"

	defaultEndpoint = "127.0.0.1:4317"
)

// ErrInvalidTracesOutput is returned for a tracesOutput value that names no
// known collector address.
var ErrInvalidTracesOutput = errors.New("invalid traces output")

// Exporter says where finished spans are shipped.
type Exporter struct {
	// HTTP selects OTLP over HTTP instead of gRPC.
	HTTP     bool
	Endpoint string
	URLPath  string
	Insecure bool
}

// ParseOutput parses the tracesOutput setting. A nil Exporter means tracing
// is off. Accepted values:
//
//	none, ""                  tracing off
//	otel                      OTLP/gRPC to 127.0.0.1:4317 without TLS
//	grpc://host:port          OTLP/gRPC without TLS
//	grpcs://host:port         OTLP/gRPC over TLS
//	http://host:port/path     OTLP/HTTP without TLS
//	https://host:port/path    OTLP/HTTP over TLS
func ParseOutput(s string) (*Exporter, error) {
	switch s {
	case "", "none":
		return nil, nil
	case "otel":
		return &Exporter{Endpoint: defaultEndpoint, Insecure: true}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidTracesOutput, s, err)
	}
	exp := &Exporter{Endpoint: u.Host}
	switch u.Scheme {
	case "grpc", "grpcs":
		if strings.Trim(u.Path, "/") != "" {
			return nil, fmt.Errorf("%w %q: gRPC collectors take no URL path", ErrInvalidTracesOutput, s)
		}
		exp.Insecure = u.Scheme == "grpc"
	case "http", "https":
		exp.HTTP = true
		exp.URLPath = u.Path
		exp.Insecure = u.Scheme == "http"
	default:
		return nil, fmt.Errorf("%w %q: use none, otel, grpc(s):// or http(s)://", ErrInvalidTracesOutput, s)
	}
	if exp.Endpoint == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidTracesOutput, s)
	}
	return exp, nil
}

func (e *Exporter) String() string {
	proto := "grpc"
	if e.HTTP {
		proto = "http"
	}
	return fmt.Sprintf("otlp/%s %s%s", proto, e.Endpoint, e.URLPath)
}

func (e *Exporter) client() otlptrace.Client {
	if e.HTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(e.Endpoint)}
		if e.URLPath != "" {
			opts = append(opts, otlptracehttp.WithURLPath(e.URLPath))
		}
		if e.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(e.Endpoint)}
	if e.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.NewClient(opts...)
}

// Provider owns the tracer provider of one run.
type Provider struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewProvider builds a batching OTLP pipeline towards exp. A nil exp yields
// a provider whose spans go nowhere.
func NewProvider(ctx context.Context, exp *Exporter) (*Provider, error) {
	if exp == nil {
		return &Provider{
			provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := otlptrace.New(ctx, exp.client())
	if err != nil {
		return nil, fmt.Errorf("creating %s exporter: %w", exp, err)
	}
	prov := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Full()),
		)),
	)
	return &Provider{provider: prov, shutdown: prov.Shutdown}, nil
}

// Tracer returns the tracer the scenario controllers record into.
func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(TracerName, trace.WithInstrumentationVersion(version.Full()))
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
