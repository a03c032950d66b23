package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/tracing"
)

func TestInitTracer_Disabled(t *testing.T) {
	require.NoError(t, tracing.InitTracer(configs.TracingConfig{Enabled: false, ExporterType: "bogus"}))
	assert.NoError(t, tracing.ShutdownTracer(context.Background()))
}

func TestInitTracer_UnknownExporter(t *testing.T) {
	err := tracing.InitTracer(configs.TracingConfig{Enabled: true, ServiceName: "t", ExporterType: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jaeger")
}

func TestRecordError(t *testing.T) {
	_, span := tracing.StartSpan(context.Background(), "test")
	defer span.End()

	tracing.RecordError(span, nil)
	tracing.RecordError(span, errors.New("boom"))
}
