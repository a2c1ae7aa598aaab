package status

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// DefaultHz is the progress update rate used when none is configured.
const DefaultHz = 10

// FinalMin is the smallest operation size whose completion update bypasses
// the rate limit. Completions of smaller operations are throttled like any
// other update.
const FinalMin = 1 << 20

type throttled struct {
	Sink
	every *rate.Sometimes
}

// Throttled forwards at most hz progress updates per second to s. The final
// update of an operation of at least FinalMin is always forwarded. Status and
// Clear are never dropped.
func Throttled(s Sink, hz int) Sink {
	if hz <= 0 {
		hz = DefaultHz
	}
	return &throttled{Sink: OrNop(s), every: &rate.Sometimes{Interval: time.Second / time.Duration(hz)}}
}

func (t *throttled) Progress(cur, max int64, msg string) {
	if max >= FinalMin && cur >= max {
		t.Sink.Progress(cur, max, msg)
		return
	}
	t.every.Do(func() { t.Sink.Progress(cur, max, msg) })
}

// Bytes formats a byte progress message such as "Downloading x: 1.2 MB / 40 MB".
func Bytes(prefix string, cur, max int64) string {
	if max <= 0 {
		return fmt.Sprintf("%s: %s", prefix, humanize.Bytes(uint64(max0(cur))))
	}
	return fmt.Sprintf("%s: %s / %s", prefix, humanize.Bytes(uint64(max0(cur))), humanize.Bytes(uint64(max)))
}
