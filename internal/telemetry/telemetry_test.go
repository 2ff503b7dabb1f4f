package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := Setup(ctx, &buf, "test")
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(ctx, "create-parent-items")
	span.End()
	require.NoError(t, shutdown(ctx))

	assert.Contains(t, buf.String(), `"Name": "create-parent-items"`)
	assert.Contains(t, buf.String(), serviceName)
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), nil, "test")
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}
