package houm

import (
	"time"

	"github.com/nerrad567/houm-bridge/internal/infrastructure/config"
)

// ReconnectPolicy decides how long to wait before a reconnection
// attempt. Attempt numbering starts at 1 and resets after a successful
// connection.
type ReconnectPolicy interface {
	// NextDelay returns the wait before the given attempt.
	NextDelay(attempt int) time.Duration
}

// ImmediatePolicy retries without delay. This is the historical
// behaviour of the bridge and the default.
type ImmediatePolicy struct{}

// NextDelay always returns zero.
func (ImmediatePolicy) NextDelay(int) time.Duration { return 0 }

// BackoffPolicy doubles the delay per attempt, from Initial up to Max.
type BackoffPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// NextDelay returns Initial << (attempt-1), capped at Max.
func (p BackoffPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Max {
			return p.Max
		}
	}
	if delay > p.Max {
		return p.Max
	}
	return delay
}

// PolicyFromConfig builds the reconnect policy selected in config.
// Unknown or empty policy names fall back to immediate retry.
func PolicyFromConfig(cfg config.ReconnectConfig) ReconnectPolicy {
	if cfg.Policy == "backoff" {
		return BackoffPolicy{
			Initial: time.Duration(cfg.InitialDelay) * time.Second,
			Max:     time.Duration(cfg.MaxDelay) * time.Second,
		}
	}
	return ImmediatePolicy{}
}
