package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedLot struct {
	ID        uint   `gorm:"primaryKey"`
	Serial    string `gorm:"size:32"`
	Remaining int64
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedLot{}))
	return db
}

func newSpanRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

// annotated runs annotateSpan against a statement prepared by mutate and
// returns the single span it decorated.
func annotated(t *testing.T, p *DBTracingPlugin, mutate func(ctx context.Context, tx *gorm.DB) context.Context) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	tx := setupTracedDB(t).Session(&gorm.Session{NewDB: true})
	tx.Statement.Context = mutate(ctx, tx)

	p.annotateSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func TestDBTracingPlugin_RegisterOtelGorm(t *testing.T) {
	t.Run("disabled config registers nothing", func(t *testing.T) {
		db := setupTracedDB(t)
		p := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())

		require.NoError(t, p.RegisterOtelGorm(db))

		assert.Nil(t, db.Callback().Create().Get("otel_timing:before_create"))
	})

	t.Run("enabled config installs the timing callbacks", func(t *testing.T) {
		db := setupTracedDB(t)
		p := NewDBTracingPlugin(DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "sqlite",
		}, zap.NewNop())

		require.NoError(t, p.RegisterOtelGorm(db))

		assert.NotNil(t, db.Callback().Create().Get("otel_timing:before_create"))
		assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))
	})

	t.Run("queries still work with tracing installed", func(t *testing.T) {
		db := setupTracedDB(t)
		p := NewDBTracingPlugin(DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "sqlite",
		}, zap.NewNop())
		require.NoError(t, p.RegisterOtelGorm(db))

		require.NoError(t, db.Create(&tracedLot{Serial: "P20260831-1", Remaining: 30}).Error)

		var found tracedLot
		require.NoError(t, db.Where("serial = ?", "P20260831-1").First(&found).Error)
		assert.Equal(t, int64(30), found.Remaining)
	})
}

func TestDBTracingPlugin_AnnotateSpan(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 50 * time.Millisecond,
	}, zap.NewNop())

	t.Run("rows and table land on the span", func(t *testing.T) {
		span := annotated(t, plugin, func(ctx context.Context, tx *gorm.DB) context.Context {
			tx.Statement.Table = "purchase_lots"
			tx.Statement.RowsAffected = 4
			return ctx
		})

		assert.Contains(t, span.Attributes(), attribute.Int64("db.rows_affected", 4))
		assert.Contains(t, span.Attributes(), attribute.String("db.sql.table", "purchase_lots"))
	})

	t.Run("slow queries get the slow flag and an event", func(t *testing.T) {
		span := annotated(t, plugin, func(ctx context.Context, tx *gorm.DB) context.Context {
			return context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))
		})

		assert.Contains(t, span.Attributes(), attribute.Bool("db.slow_query", true))

		var eventNames []string
		for _, e := range span.Events() {
			eventNames = append(eventNames, e.Name)
		}
		assert.Contains(t, eventNames, "slow_query_warning")
	})

	t.Run("fast queries stay unflagged", func(t *testing.T) {
		span := annotated(t, plugin, func(ctx context.Context, tx *gorm.DB) context.Context {
			return context.WithValue(ctx, queryStartTimeKey, time.Now())
		})

		assert.NotContains(t, span.Attributes(), attribute.Bool("db.slow_query", true))
		assert.Empty(t, span.Events())
	})

	t.Run("statement errors mark the span", func(t *testing.T) {
		span := annotated(t, plugin, func(ctx context.Context, tx *gorm.DB) context.Context {
			tx.Error = assert.AnError
			return ctx
		})

		assert.Equal(t, codes.Error, span.Status().Code)
	})

	t.Run("record not found does not mark the span", func(t *testing.T) {
		span := annotated(t, plugin, func(ctx context.Context, tx *gorm.DB) context.Context {
			tx.Error = gorm.ErrRecordNotFound
			return ctx
		})

		assert.Equal(t, codes.Unset, span.Status().Code)
		assert.Empty(t, span.Events())
	})
}
