// Package gormzap gormのクエリログをzapに流すロガー
package gormzap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// DefaultSlowThreshold これ以上かかったクエリはWarnで記録されます
const DefaultSlowThreshold = 200 * time.Millisecond

// L gormのlogger.Interface実装
type L struct {
	l                    *zap.Logger
	slowThreshold        time.Duration
	parameterizedQueries bool
}

var (
	_ logger.Interface  = (*L)(nil)
	_ gorm.ParamsFilter = (*L)(nil)
)

// Option ロガーのオプション
type Option func(l *L)

// WithSlowThreshold スロークエリとみなす閾値を設定します。0以下で無効
func WithSlowThreshold(d time.Duration) Option {
	return func(l *L) {
		l.slowThreshold = d
	}
}

// WithParameterizedQueries trueの場合、クエリログにパラメータを埋め込みません
//
// メッセージ本文がログに残らないようにする場合に使います。
func WithParameterizedQueries(enabled bool) Option {
	return func(l *L) {
		l.parameterizedQueries = enabled
	}
}

// New zapロガーをラップしたgormロガーを生成します
func New(zl *zap.Logger, options ...Option) *L {
	l := &L{
		l:             zl,
		slowThreshold: DefaultSlowThreshold,
	}
	for _, o := range options {
		o(l)
	}
	return l
}

func (gl L) LogMode(level logger.LogLevel) logger.Interface {
	var zapLevel zapcore.Level
	switch level {
	case logger.Silent:
		zapLevel = zap.DPanicLevel
	case logger.Error:
		zapLevel = zap.ErrorLevel
	case logger.Warn:
		zapLevel = zap.WarnLevel
	case logger.Info:
		zapLevel = zap.InfoLevel
	default:
		return &gl
	}
	gl.l = gl.l.WithOptions(zap.IncreaseLevel(zapLevel))
	return &gl
}

func (gl *L) Info(_ context.Context, s string, i ...interface{}) {
	gl.l.Info(fmt.Sprintf(s, i...))
}

func (gl *L) Warn(_ context.Context, s string, i ...interface{}) {
	gl.l.Warn(fmt.Sprintf(s, i...))
}

func (gl *L) Error(_ context.Context, s string, i ...interface{}) {
	gl.l.Error(fmt.Sprintf(s, i...))
}

func (gl *L) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		lvl, msg = zap.ErrorLevel, "query failed"
	case gl.slowThreshold > 0 && elapsed > gl.slowThreshold:
		lvl, msg = zap.WarnLevel, "slow query"
	default:
		lvl, msg = zap.DebugLevel, "query"
	}
	ce := gl.l.Check(lvl, msg)
	if ce == nil {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.String("file", utils.FileWithLineNum()),
		zap.Duration("latency", elapsed),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if lvl == zap.ErrorLevel {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// ParamsFilter implements [(gorm.io/gorm).ParamsFilter]
func (gl *L) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if gl.parameterizedQueries {
		return sql, nil
	}
	return sql, params
}
