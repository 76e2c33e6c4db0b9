// README: Order service runs one dispatch end to end: demand, retrieval, scoring, assignment, outcome.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"routematch/internal/events"
	"routematch/internal/modules/driver"
	"routematch/internal/modules/features"
	"routematch/internal/modules/location"
	"routematch/internal/modules/matching"
	"routematch/internal/modules/outcome"
	"routematch/internal/modules/retrieval"
	"routematch/internal/modules/scoring"
	"routematch/internal/types"
)

type DemandTracker interface {
	Record(ctx context.Context, pickup types.Point, orderID types.ID, at time.Time) error
	Count(ctx context.Context, pickup types.Point, at time.Time) (float64, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, pickup types.Point, class driver.VehicleClass) ([]retrieval.Candidate, error)
}

type Assigner interface {
	Assign(ctx context.Context, orderID types.ID, candidates []matching.Ranked) (matching.Match, bool, error)
	Release(ctx context.Context, driverID, orderID types.ID) error
}

type DriverStatusWriter interface {
	SetStatus(ctx context.Context, id types.ID, status driver.Status) error
}

type OutcomeResolver interface {
	Resolve(ctx context.Context, driverID, orderID types.ID, accepted bool) (outcome.Stats, error)
}

// IntakeGuard hands each order ID to a single dispatch.
type IntakeGuard interface {
	Claim(ctx context.Context, orderID types.ID) (bool, error)
	Unclaim(ctx context.Context, orderID types.ID) error
}

// DispatchLog persists dispatch records. Optional.
type DispatchLog interface {
	Insert(ctx context.Context, d Dispatch) error
	Get(ctx context.Context, orderID types.ID) (Dispatch, error)
}

type Deps struct {
	Grid      location.Grid
	Demand    DemandTracker
	Retriever Retriever
	Scorer    scoring.Scorer
	Assigner  Assigner
	Drivers   DriverStatusWriter
	Responder outcome.Responder
	Outcomes  OutcomeResolver
	Intake    IntakeGuard
	Log       DispatchLog
	Events    events.Publisher
	Features  features.Options
}

type Service struct {
	deps Deps
	log  *zap.Logger
}

func NewService(deps Deps, log *zap.Logger) *Service {
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	return &Service{deps: deps, log: log}
}

// Submit dispatches one order. Failures to find or lock a driver are results,
// not errors. A scoring failure returns an error wrapping
// scoring.ErrUnavailable. An order ID that is already being dispatched, or
// already has an outcome, returns ErrDuplicate before any store is touched.
// Requests share no in-process state; all coordination goes through the
// stores.
func (s *Service) Submit(ctx context.Context, o Order) (Result, error) {
	start := time.Now()
	if err := o.Validate(); err != nil {
		return Result{}, err
	}
	d := s.deps

	resolved := false
	if d.Intake != nil {
		ok, err := d.Intake.Claim(ctx, o.ID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicate, o.ID)
		}
		// orders that end without an outcome may be submitted again
		defer func() {
			if !resolved {
				s.unclaim(ctx, o.ID)
			}
		}()
	}

	// start is the order's intake instant: demand is recorded at it and read
	// strictly before it.
	if err := d.Demand.Record(ctx, o.Pickup, o.ID, start); err != nil {
		return Result{}, fmt.Errorf("record demand for order %s: %w", o.ID, err)
	}

	cands, err := d.Retriever.Retrieve(ctx, o.Pickup, o.VehicleClass)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve candidates for order %s: %w", o.ID, err)
	}

	rec := Dispatch{
		OrderID:      o.ID,
		UserID:       o.UserID,
		Pickup:       o.Pickup,
		Cell:         d.Grid.Cell(o.Pickup).String(),
		VehicleClass: o.VehicleClass,
		ServiceClass: o.ServiceClass,
		ShippingFee:  o.ShippingFee,
		Candidates:   len(cands),
		CreatedAt:    start.UTC(),
	}
	if len(cands) == 0 {
		return s.finish(ctx, rec, Result{Status: StatusFailed, Reason: ReasonNoDrivers}, start), nil
	}

	demand, err := d.Demand.Count(ctx, o.Pickup, start)
	if err != nil {
		return Result{}, fmt.Errorf("read demand for order %s: %w", o.ID, err)
	}
	rec.Demand60m = demand

	reqs := features.EnrichAll(o.Context(), cands, demand, d.Features)
	preds, err := d.Scorer.Score(ctx, reqs)
	if err != nil {
		return Result{}, fmt.Errorf("score order %s: %w", o.ID, err)
	}

	ranked := make([]matching.Ranked, len(preds))
	offers := make(map[types.ID]scoring.Request, len(reqs))
	for i, p := range preds {
		ranked[i] = matching.Ranked{DriverID: types.ID(p.DriverID), Probability: p.Probability}
		offers[types.ID(reqs[i].DriverID)] = reqs[i]
	}

	match, ok, err := d.Assigner.Assign(ctx, o.ID, ranked)
	if err != nil {
		return Result{}, fmt.Errorf("assign order %s: %w", o.ID, err)
	}
	if !ok {
		return s.finish(ctx, rec, Result{Status: StatusFailed, Reason: ReasonAllDriversBusy}, start), nil
	}
	rec.DriverID = &match.DriverID
	rec.Probability = &match.Probability
	rec.Rank = match.Rank

	if err := d.Drivers.SetStatus(ctx, match.DriverID, driver.StatusOffered); err != nil {
		return Result{}, fmt.Errorf("offer order %s to driver %s: %w", o.ID, match.DriverID, err)
	}

	accepted, err := d.Responder.Respond(ctx, offers[match.DriverID])
	if err != nil {
		return Result{}, fmt.Errorf("driver %s response to order %s: %w", match.DriverID, o.ID, err)
	}

	stats, err := d.Outcomes.Resolve(ctx, match.DriverID, o.ID, accepted)
	if errors.Is(err, outcome.ErrAlreadyResolved) {
		resolved = true
		return Result{}, fmt.Errorf("%w: %s", ErrDuplicate, o.ID)
	}
	if err != nil {
		return Result{}, err
	}
	resolved = true

	res := Result{Status: StatusAccepted, DriverID: match.DriverID, Probability: match.Probability}
	if !accepted {
		res.Status = StatusRejected
		if err := d.Assigner.Release(ctx, match.DriverID, o.ID); err != nil {
			s.log.Warn("release driver lock failed",
				zap.String("order_id", string(o.ID)),
				zap.String("driver_id", string(match.DriverID)),
				zap.Error(err))
		}
	}
	s.log.Debug("driver stats updated",
		zap.String("driver_id", string(match.DriverID)),
		zap.Int64("total_offers", stats.TotalOffers),
		zap.Float64("accept_rate", stats.AcceptRate))
	return s.finish(ctx, rec, res, start), nil
}

func (s *Service) unclaim(ctx context.Context, orderID types.ID) {
	if err := s.deps.Intake.Unclaim(context.WithoutCancel(ctx), orderID); err != nil {
		s.log.Warn("order unclaim failed", zap.String("order_id", string(orderID)), zap.Error(err))
	}
}

// finish logs the decision and hands it to the dispatch log and event sink.
// Sink failures are logged and never change the result.
func (s *Service) finish(ctx context.Context, rec Dispatch, res Result, start time.Time) Result {
	res.Elapsed = time.Since(start).Seconds()
	rec.Status = res.Status
	rec.Reason = res.Reason

	s.log.Info("dispatch decided",
		zap.String("order_id", string(rec.OrderID)),
		zap.String("status", string(res.Status)),
		zap.String("reason", string(res.Reason)),
		zap.String("driver_id", string(res.DriverID)),
		zap.Float64("prob_accept", res.Probability),
		zap.Int("candidates", rec.Candidates),
		zap.Float64("elapsed_s", res.Elapsed))

	if s.deps.Log != nil {
		if err := s.deps.Log.Insert(ctx, rec); err != nil {
			s.log.Warn("dispatch log insert failed", zap.String("order_id", string(rec.OrderID)), zap.Error(err))
		}
	}
	ev := events.DispatchEvent{
		OrderID:     string(rec.OrderID),
		Status:      string(res.Status),
		Reason:      string(res.Reason),
		DriverID:    string(res.DriverID),
		Probability: res.Probability,
		Rank:        rec.Rank,
		Candidates:  rec.Candidates,
		Demand60m:   rec.Demand60m,
	}
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		s.log.Warn("dispatch event publish failed", zap.String("order_id", string(rec.OrderID)), zap.Error(err))
	}
	return res
}

// Get returns the logged dispatch for an order.
func (s *Service) Get(ctx context.Context, id types.ID) (Dispatch, error) {
	if s.deps.Log == nil {
		return Dispatch{}, ErrNotFound
	}
	return s.deps.Log.Get(ctx, id)
}
