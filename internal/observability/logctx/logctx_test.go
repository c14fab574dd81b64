package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/stretchr/testify/assert"
)

type recLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l recLogger) With(fields ...observability.Field) observability.Logger {
	return recLogger{Logger: l.Logger, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))
	assert.Nil(t, From(context.Background()))

	stored := recLogger{Logger: observability.NopLogger()}
	ctx := With(context.Background(), stored)
	assert.Equal(t, stored, From(ctx))
}

func TestWithNilLoggerKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, With(ctx, nil))
}

func TestEnrichStacksFields(t *testing.T) {
	base := recLogger{Logger: observability.NopLogger()}

	ctx := Enrich(context.Background(), base, observability.F("invoice_id", "a"))
	ctx = Enrich(ctx, nil, observability.F("use_case", "invoice.commit"))

	got, ok := From(ctx).(recLogger)
	assert.True(t, ok)
	assert.Equal(t, []observability.Field{
		observability.F("invoice_id", "a"),
		observability.F("use_case", "invoice.commit"),
	}, got.fields)
}
