// README: Driver response simulation; stands in for a real driver answering an offer.
package outcome

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"routematch/internal/modules/scoring"
)

// Responder decides whether the offered driver accepts. The record is the
// enriched feature record the driver was ranked with.
type Responder interface {
	Respond(ctx context.Context, offer scoring.Request) (bool, error)
}

type ResponderFunc func(ctx context.Context, offer scoring.Request) (bool, error)

func (f ResponderFunc) Respond(ctx context.Context, offer scoring.Request) (bool, error) {
	return f(ctx, offer)
}

// SimulatedResponder accepts with the logistic probability of its weight set.
type SimulatedResponder struct {
	weights scoring.Weights

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedResponder seeds the draw; seed 0 picks a time-based seed.
func NewSimulatedResponder(weights scoring.Weights, seed int64) *SimulatedResponder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedResponder{
		weights: weights,
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// NewSimulatedResponderWithRand uses the given source as is.
func NewSimulatedResponderWithRand(weights scoring.Weights, rng *rand.Rand) *SimulatedResponder {
	return &SimulatedResponder{weights: weights, rng: rng}
}

func (s *SimulatedResponder) Respond(ctx context.Context, offer scoring.Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p := scoring.Probability(offer, s.weights)
	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()
	return draw < p, nil
}
