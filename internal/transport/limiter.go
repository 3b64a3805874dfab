package transport

import "golang.org/x/time/rate"

// NewSendLimiter builds the rate limiter guarding outbound remote sends,
// the transport-level backpressure device named in spec §5 ("if the
// transport's send queue rejects a package"). Mirrors the teacher's
// rate.Limiter-based flow throttle.
func NewSendLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
