package notification

import (
	"context"
	"errors"
)

// MultiPublisher fans a message out to every publisher. The first publisher
// is authoritative: its error is returned. Errors from the others are joined
// in but only matter when the primary also failed.
type MultiPublisher struct {
	primary    Publisher
	secondary  []Publisher
	onSecError func(err error)
}

func NewMultiPublisher(primary Publisher, secondary ...Publisher) *MultiPublisher {
	return &MultiPublisher{primary: primary, secondary: secondary}
}

// OnSecondaryError registers a callback for failures of non-primary publishers.
func (m *MultiPublisher) OnSecondaryError(fn func(err error)) {
	m.onSecError = fn
}

func (m *MultiPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := m.primary.Publish(ctx, routingKey, body)

	var secErrs []error
	for _, p := range m.secondary {
		if p == nil {
			continue
		}
		if sErr := p.Publish(ctx, routingKey, body); sErr != nil {
			secErrs = append(secErrs, sErr)
			if m.onSecError != nil {
				m.onSecError(sErr)
			}
		}
	}

	if err != nil {
		return errors.Join(append([]error{err}, secErrs...)...)
	}
	return nil
}
