package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// ZerologSink adapts Sink onto github.com/rs/zerolog, the production
// default — zerolog's zero-allocation structured-event builder is the
// idiomatic Go analogue of wrapping a small sink interface around an
// external logging library, the pattern the pack repos use for their own
// log.Logger fields.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink wraps logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Log(level Level, wallTimestamp time.Time, message string) {
	var ev *zerolog.Event
	switch level {
	case Trace:
		ev = s.logger.Trace()
	case Debug:
		ev = s.logger.Debug()
	case Info:
		ev = s.logger.Info()
	case Warn:
		ev = s.logger.Warn()
	case Error:
		ev = s.logger.Error()
	case Exception:
		ev = s.logger.Error().Str("kind", "exception")
	default:
		ev = s.logger.Info()
	}
	ev.Time("wall_timestamp", wallTimestamp).Msg(message)
}
