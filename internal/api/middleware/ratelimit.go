package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/ratelimit"
)

// RateLimit limits requests per client IP. A limiter backend failure lets the
// request through.
func RateLimit(limiter ratelimit.Limiter, route string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.WarnContext(r.Context(), "Rate limiter unavailable", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				metrics.RecordRateLimited(route)
				w.Header().Set("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())+1))
				response.Fail(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
