// control/logger.go
// Author: momentics <momentics@gmail.com>
//
// zap logger factory.

package control

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/hioload-mq/api"
)

// ParseLevel maps a textual level to zap's.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", api.ErrInvalidArgument, level)
	}
	return l, nil
}

// NewLogger builds a JSON production logger, or a console development
// logger at debug level.
func NewLogger(level string) (*zap.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	if l == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(l)
	return cfg.Build()
}
