package scoring

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogit_ResponseModelTerms(t *testing.T) {
	w := DefaultResponseWeights()
	base := Request{
		VehicleClass:     "bike",
		ServiceClass:     "fast",
		DistanceKm:       5,
		ShippingFee:      20000,
		PickupDistanceKm: 1,
	}
	// bias + earnings - pickup cost
	assert.InDelta(t, 0.1+0.8-0.4, Logit(base, w), 1e-9)

	rain := base
	rain.Raining = 1
	assert.InDelta(t, Logit(base, w)-2.0, Logit(rain, w), 1e-9)

	truckRain := rain
	truckRain.VehicleClass = "truck_500"
	assert.InDelta(t, Logit(base, w), Logit(truckRain, w), 1e-9, "rain only penalises bikes")

	cod := base
	cod.CODAmount = 1_000_000
	assert.InDelta(t, Logit(base, w)-1.5, Logit(cod, w), 1e-9)

	std := base
	std.ServiceClass = "standard"
	prio := base
	prio.ServiceClass = "prioritize"
	assert.InDelta(t, Logit(base, w)+0.2, Logit(std, w), 1e-9)
	assert.InDelta(t, Logit(base, w)-0.5, Logit(prio, w), 1e-9)

	tiredLong := base
	tiredLong.FatigueIndex = 0.8
	tiredLong.DistanceKm = 20
	tiredShort := tiredLong
	tiredShort.DistanceKm = 10
	assert.InDelta(t, Logit(base, w)-2.0, Logit(tiredLong, w), 1e-9)
	assert.InDelta(t, Logit(base, w), Logit(tiredShort, w), 1e-9)
}

func TestRankingWeightsRewardHistory(t *testing.T) {
	w := DefaultRankingWeights()
	low := Request{VehicleClass: "bike", ServiceClass: "standard", ShippingFee: 30000, AcceptRate: 0.2}
	high := low
	high.AcceptRate = 0.9
	assert.Greater(t, Probability(high, w), Probability(low, w))
}

func TestLogisticScorer(t *testing.T) {
	s := NewLogisticScorer(DefaultRankingWeights())
	reqs := batch("a", "b")
	reqs[1].PickupDistanceKm = 4

	preds, err := s.Score(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "a", preds[0].DriverID)
	assert.Greater(t, preds[0].Probability, preds[1].Probability, "closer driver ranks higher")
	for _, p := range preds {
		assert.False(t, math.IsNaN(p.Probability))
		assert.True(t, p.Probability > 0 && p.Probability < 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Score(ctx, reqs)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadWeights_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bias: -1.5\nrain_bike_penalty: 3\n"), 0o644))

	w, err := LoadWeights(path, DefaultRankingWeights())
	require.NoError(t, err)
	assert.Equal(t, -1.5, w.Bias)
	assert.Equal(t, 3.0, w.RainBikePenalty)
	assert.Equal(t, DefaultRankingWeights().AcceptRateWeight, w.AcceptRateWeight, "unset keys keep defaults")

	same, err := LoadWeights("", DefaultResponseWeights())
	require.NoError(t, err)
	assert.Equal(t, DefaultResponseWeights(), same)

	_, err = LoadWeights(filepath.Join(t.TempDir(), "missing.yaml"), Weights{})
	assert.Error(t, err)
}
