package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/order-fulfillment/internal/orchestrator/domain"
)

type Journeys struct {
	mu   sync.Mutex
	byID map[int64]*domain.Journey
}

func NewJourneys() *Journeys {
	return &Journeys{byID: make(map[int64]*domain.Journey)}
}

func (s *Journeys) Update(_ context.Context, orderID int64, fn func(*domain.Journey)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.byID[orderID]
	if !ok {
		j = &domain.Journey{OrderID: orderID}
		s.byID[orderID] = j
	}
	fn(j)
	return nil
}

func (s *Journeys) Get(_ context.Context, orderID int64) (domain.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.byID[orderID]
	if !ok {
		return domain.Journey{}, domain.ErrJourneyNotFound
	}
	out := *j
	out.Steps = append([]domain.Step(nil), j.Steps...)
	return out, nil
}
