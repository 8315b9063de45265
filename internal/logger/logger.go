package logger

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	appName     string
	environment string
	level       = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base        = zap.NewNop()
	sugar       = base.Sugar()
)

// Init reads the identity fields from the environment and starts writing
// JSON lines to stdout, where Lambda forwards them to CloudWatch.
func Init() {
	appName = os.Getenv("APP_NAME")
	if appName == "" {
		appName = os.Getenv("SERVICE_NAME")
	}
	environment = os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "unknown"
	}
	setOutput(os.Stdout)
}

// SetLevel changes the minimum level. Unknown names leave the level unchanged.
func SetLevel(name string) bool {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return false
	}
	level.SetLevel(l)
	return true
}

func setOutput(w io.Writer) {
	enc := zapcore.EncoderConfig{
		LevelKey:       "level",
		TimeKey:        "timestamp",
		MessageKey:     "message",
		NameKey:        "context",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	base = zap.New(core).Named("LogExport").With(
		zap.String("app_name", appName),
		zap.String("environment", environment),
	)
	sugar = base.Sugar()
}

func utcTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339Nano))
}

// With returns a logger carrying extra structured fields, e.g. the request id.
func With(fields ...zap.Field) *zap.Logger { return base.With(fields...) }

// Sync flushes buffered entries before the sandbox is frozen.
func Sync() { _ = base.Sync() }

func Info(msg string)                { sugar.Info(msg) }
func Debug(msg string)               { sugar.Debug(msg) }
func Error(msg string)               { sugar.Error(msg) }
func Infof(format string, a ...any)  { sugar.Infof(format, a...) }
func Debugf(format string, a ...any) { sugar.Debugf(format, a...) }
func Errorf(format string, a ...any) { sugar.Errorf(format, a...) }
func Fatalf(format string, a ...any) { sugar.Fatalf(format, a...) }
func Fatal(msg string)               { sugar.Fatal(msg) }
