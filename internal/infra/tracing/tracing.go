package tracing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"shop/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// NewProviderは出力先ごとのTracerProviderを作る。noneならnil
func NewProvider(exporter, serviceName string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(exporter)) {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		res := resource.NewSchemaless(attribute.String("service.name", serviceName))
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		), nil
	default:
		return nil, fmt.Errorf("unknown traces exporter %q", exporter)
	}
}

// Setupはグローバルに登録する。返した関数で終了時にフラッシュする
func Setup(cfg config.Tracing, w io.Writer) (func(context.Context) error, error) {
	tp, err := NewProvider(cfg.Exporter, cfg.ServiceName, w)
	if err != nil {
		return nil, err
	}
	if tp == nil {
		return func(context.Context) error { return nil }, nil
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
