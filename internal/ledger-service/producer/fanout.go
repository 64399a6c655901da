package producer

import (
	"context"
	"errors"

	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// Publisher é o mesmo contrato do lifecycle.Publisher
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Fanout entrega cada evento a todos os publishers; um destino com falha
// não impede os demais
type Fanout []Publisher

func (f Fanout) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishBetPlaced(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishBetSettled(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
