package status

import (
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// LogSink writes updates to a zerolog logger. Progress is logged at debug level.
type LogSink struct {
	Log zerolog.Logger
}

func NewLogSink(l zerolog.Logger) LogSink { return LogSink{Log: l} }

func (s LogSink) Status(msg string) {
	s.Log.Info().Msg(msg)
}

func (s LogSink) Progress(cur, max int64, msg string) {
	ev := s.Log.Debug().Str("done", humanize.Bytes(uint64(max0(cur))))
	if max > 0 {
		ev = ev.Str("total", humanize.Bytes(uint64(max))).Int64("pct", cur*100/max)
	}
	ev.Msg(msg)
}

func (s LogSink) Clear() {}

func max0(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
