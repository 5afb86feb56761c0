package ghclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/spiffcs/boardsync/internal/log"
)

// pacer is the shared token bucket every outbound attempt waits on. With
// burst 1 consecutive attempts are at least one interval apart, which keeps
// mutations under GitHub's secondary limits.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(interval time.Duration, burst int) *pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &pacer{limiter: rate.NewLimiter(limit, burst)}
}

// wait blocks until the bucket has a token for req. A nil pacer never waits.
func (p *pacer) wait(req *http.Request) error {
	if p == nil {
		return nil
	}
	start := time.Now()
	if err := p.limiter.Wait(req.Context()); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		log.Trace("paced request", "method", req.Method, "url", req.URL.Path, "waited", waited)
	}
	return nil
}
