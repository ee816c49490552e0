package api

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// limitUploads is a huma operation middleware that rate limits uploads per
// client IP. Returns 429 with Retry-After when the allowance is spent.
func (s *Server) limitUploads(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())

	if !s.uploadLimiter.Allow(key) {
		wait := s.uploadLimiter.RetryAfter(key)
		s.logger.Warn("upload rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
			"retry_after", wait)
		ctx.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many uploads, try again later")
		return
	}

	next(ctx)
}

// clientIP strips the port from a RemoteAddr. middleware.RealIP has already
// applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
