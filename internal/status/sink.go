// Package status carries human-readable status and progress updates from long
// running operations (downloads, unpacking, library loading) to whoever shows them.
package status

import "time"

// Sink receives status updates. Implementations must be cheap and must not
// block; they are called from inside copy loops.
type Sink interface {
	Status(msg string)
	Progress(current, max int64, msg string)
	Clear()
}

// Update is one recorded call on a Sink.
type Update struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Current int64     `json:"current,omitempty"`
	Max     int64     `json:"max,omitempty"`
	Cleared bool      `json:"cleared,omitempty"`
}

type nopSink struct{}

func (nopSink) Status(string)                {}
func (nopSink) Progress(int64, int64, string) {}
func (nopSink) Clear()                        {}

// Nop returns a Sink that drops everything.
func Nop() Sink { return nopSink{} }

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

type multi []Sink

func (m multi) Status(msg string) {
	for _, s := range m {
		s.Status(msg)
	}
}

func (m multi) Progress(cur, max int64, msg string) {
	for _, s := range m {
		s.Progress(cur, max, msg)
	}
}

func (m multi) Clear() {
	for _, s := range m {
		s.Clear()
	}
}

// Multi fans updates out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}
