package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func queryFunc(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("queries log at debug under info level", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info)

		l.Trace(ctx, time.Now(), queryFunc("SELECT * FROM purchase_lots WHERE product_id = $1", 3), nil)

		entries := recorded.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(3), fields["rows"])
		assert.Contains(t, fields["sql"], "purchase_lots")
	})

	t.Run("errors log with the failing statement", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Error)

		l.Trace(ctx, time.Now(), queryFunc("INSERT INTO purchase_invoices ...", 0), assert.AnError)

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Error)

		l.Trace(ctx, time.Now(), queryFunc("SELECT ...", 0), gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(ctx, time.Now().Add(-time.Second), queryFunc("SELECT ...", 100), nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	})

	t.Run("silent level suppresses everything", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent)

		l.Trace(ctx, time.Now(), queryFunc("SELECT ...", 1), assert.AnError)

		assert.Zero(t, recorded.Len())
	})

	t.Run("request id from the context is attached", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info)

		reqCtx := context.WithValue(ctx, RequestIDKey, "req-7")
		l.Trace(reqCtx, time.Now(), queryFunc("SELECT ...", 1), nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := NewGormLogger(zap.New(core), gormlogger.Silent)

	verbose := base.LogMode(gormlogger.Info)
	verbose.Info(context.Background(), "migrating %s", "products")

	// The original keeps its level
	base.Info(context.Background(), "should not appear")

	assert.Equal(t, 1, recorded.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
