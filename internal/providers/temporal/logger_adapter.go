package temporal

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// ZapLoggerAdapter bridges Temporal's keyval logger onto zap
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLoggerAdapter wraps logger as a Temporal log.Logger
func NewZapLoggerAdapter(logger *zap.Logger) log.Logger {
	return &ZapLoggerAdapter{logger: logger}
}

func (z *ZapLoggerAdapter) Debug(msg string, keyvals ...interface{}) {
	z.logger.Debug(msg, keyvalFields(keyvals...)...)
}

func (z *ZapLoggerAdapter) Info(msg string, keyvals ...interface{}) {
	z.logger.Info(msg, keyvalFields(keyvals...)...)
}

func (z *ZapLoggerAdapter) Warn(msg string, keyvals ...interface{}) {
	z.logger.Warn(msg, keyvalFields(keyvals...)...)
}

func (z *ZapLoggerAdapter) Error(msg string, keyvals ...interface{}) {
	z.logger.Error(msg, keyvalFields(keyvals...)...)
}

// keyvalFields turns Temporal's alternating key, value pairs into zap
// fields. A trailing unpaired value and non-string keys are dropped.
func keyvalFields(keyvals ...interface{}) []zap.Field {
	if len(keyvals)%2 != 0 {
		keyvals = keyvals[:len(keyvals)-1]
	}

	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	return fields
}
