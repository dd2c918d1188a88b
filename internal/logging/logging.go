// Package logging builds the process-wide zap logger.
package logging

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger at level, or a console logger with stack traces
// when development is set
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "build logger")
	}
	return logger, nil
}

// ParseLevel accepts zap level names. An empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, eris.Wrapf(err, "invalid log level %q", level)
	}
	return lvl, nil
}

// Err attaches an error with its eris stack, if it has one
func Err(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Object("error", erisMarshaler{err})
}

type erisMarshaler struct{ err error }

func (m erisMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("message", m.err.Error())
	if formatted := eris.ToString(m.err, true); formatted != m.err.Error() {
		enc.AddString("trace", formatted)
	}
	return nil
}
