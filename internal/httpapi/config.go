package httpapi

import (
	"net/http"
	"time"
)

// DefaultMaxBodyBytes limits JSON request bodies when Options leaves it unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// Options tunes request handling of the admin API.
type Options struct {
	// MaxBodyBytes caps POST bodies; <= 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// ActivateTimeout bounds POST /versions/activate, download included; 0 disables.
	ActivateTimeout time.Duration
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
}

var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
var corsHeaders = []string{"Content-Type", "X-Log-Level"}

var opts = Options{}.normalized()

func (o Options) normalized() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.ActivateTimeout < 0 {
		o.ActivateTimeout = 0
	}
	o.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	return o
}

// Configure replaces the options used by muxes built afterwards. It returns
// the options in effect before the call.
func Configure(o Options) Options {
	prev := opts
	opts = o.normalized()
	return prev
}
