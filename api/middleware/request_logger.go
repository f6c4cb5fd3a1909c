// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"

	"github.com/vechain/stakingpool/log"
)

// RequestIDHeader carries the id the request is logged under.
const RequestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return hijacker.Hijack()
}

// RequestLoggerMiddleware logs every request while enabled is set, and otherwise
// only those slower than slowQueriesThreshold or answered with a 5xx status.
// A zero threshold disables slow query logging.
func RequestLoggerMiddleware(logger log.Logger, enabled *atomic.Bool, slowQueriesThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewRandom().String()
			}
			w.Header().Set(RequestIDHeader, id)

			var body []byte
			if r.Body != nil {
				var err error
				if body, err = io.ReadAll(r.Body); err != nil {
					logger.Warn("unexpected body read error", "id", id, "err", err)
					http.Error(w, "bad body", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			start := time.Now()
			sw := &statusWriter{w, http.StatusOK}
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			slow := slowQueriesThreshold > 0 && duration > slowQueriesThreshold
			switch {
			case sw.status >= http.StatusInternalServerError:
				logger.Warn("api request failed",
					"id", id,
					"status", sw.status,
					"durationMs", duration.Milliseconds(),
					"method", r.Method,
					"uri", r.URL.String(),
					"body", string(body),
				)
			case enabled.Load() || slow:
				logger.Info("api request",
					"id", id,
					"status", sw.status,
					"durationMs", duration.Milliseconds(),
					"method", r.Method,
					"uri", r.URL.String(),
					"body", string(body),
				)
			}
		})
	}
}
