package notion

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// leveledLogger routes retryablehttp's logging through zerolog
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { emit(log.Error(), msg, kv) }
func (leveledLogger) Warn(msg string, kv ...interface{}) { emit(log.Warn(), msg, kv) }
func (leveledLogger) Info(msg string, kv ...interface{}) { emit(log.Debug(), msg, kv) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { emit(log.Trace(), msg, kv) }

func emit(e *zerolog.Event, msg string, kv []interface{}) {
	e = e.Str("component", "notion-http")
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
