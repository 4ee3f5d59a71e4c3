package app

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger writes diagnostics to w: debug level with --verbose, warnings
// otherwise. JSON output modes get JSON log lines.
func newLogger(w io.Writer, verbose, structured bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}
	return newLoggerAt(w, level, structured)
}

func newLoggerAt(w io.Writer, level zap.AtomicLevel, structured bool) *zap.Logger {
	var encCfg zapcore.EncoderConfig
	if structured {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
	}
	encCfg.NameKey = "logger"

	var enc zapcore.Encoder
	if structured {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core).Named("bookcal")
}
