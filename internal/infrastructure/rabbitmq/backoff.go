package rabbitmq

import "time"

// Backoff is an exponential delay that doubles per failure up to Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	failures int
}

// Next returns the delay for the current failure count and advances it.
func (b *Backoff) Next() time.Duration {
	d := b.Base
	for i := 0; i < b.failures; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	b.failures++
	return d
}

func (b *Backoff) Reset() {
	b.failures = 0
}
