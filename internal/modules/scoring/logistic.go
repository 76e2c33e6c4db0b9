// README: In-process scorer for development and load tests without a deployed oracle.
package scoring

import "context"

type LogisticScorer struct {
	weights Weights
}

func NewLogisticScorer(w Weights) *LogisticScorer {
	return &LogisticScorer{weights: w}
}

func (s *LogisticScorer) Score(ctx context.Context, reqs []Request) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}
	out := make([]Prediction, len(reqs))
	for i, r := range reqs {
		out[i] = Prediction{DriverID: r.DriverID, Probability: Probability(r, s.weights)}
	}
	return out, nil
}
