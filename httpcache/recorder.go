package httpcache

import (
	"bytes"
	"net/http"
	"strings"
)

// unstoredHeaders are never replayed from the cache: they are per response,
// per client, or written separately.
var unstoredHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Content-Type":      {},
	"Date":              {},
	"Keep-Alive":        {},
	"Set-Cookie":        {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	HeaderOutputCache:   {},
}

// recorder passes the response through and keeps a copy of the body.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w}
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// storedHeaders returns the response headers worth replaying on a hit.
func (w *recorder) storedHeaders() map[string]string {
	var out map[string]string
	for k, v := range w.Header() {
		k = http.CanonicalHeaderKey(k)
		if _, skip := unstoredHeaders[k]; skip || len(v) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}
