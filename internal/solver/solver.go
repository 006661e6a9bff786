package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/example/meetpoint/internal/geo"
	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/observability"
	"github.com/example/meetpoint/internal/travel"
)

// Result is what compute stores on the session. The solver never fails:
// a degraded outcome carries a warning instead of an error, because a
// stalled computation would block both parties indefinitely.
type Result struct {
	Point       models.Coord
	TravelTimeA *int // seconds to Point, nil when times are unavailable
	TravelTimeB *int
	Warning     string
}

// Service iterates toward a point with balanced travel times for both
// parties. Road and transit networks are asymmetric, so the geographic
// midpoint is only the starting guess.
type Service struct {
	Travel travel.Client // nil means geographic midpoint only
	Cache  travel.Cache  // optional

	MaxIterations        int
	ConvergenceThreshold float64 // relative imbalance, e.g. 0.1
	Damping              float64 // < 1 to prevent oscillation
	LongDistanceSeconds  int     // combined travel time that earns a warning

	Logger *slog.Logger
}

// Solve returns a meeting point for a and b plus travel-time diagnostics.
func (s *Service) Solve(ctx context.Context, a, b models.Coord, mode models.TravelMode) Result {
	t := 0.5
	p := geo.Midpoint(a, b)

	if s.Travel == nil {
		return Result{Point: p, Warning: "travel times unavailable; using geographic midpoint"}
	}

	var (
		lastA, lastB float64
		converged    bool
		imbalance    float64
	)
	for i := 0; i < s.MaxIterations; i++ {
		tA, errA := s.seconds(ctx, a, p, mode)
		tB, errB := s.seconds(ctx, b, p, mode)
		if errA != nil || errB != nil {
			s.log().Warn("travel time lookup failed, falling back to geographic midpoint",
				"err_a", errA, "err_b", errB)
			observability.SolverFallbacks.Inc()
			return Result{
				Point:   geo.Midpoint(a, b),
				Warning: "could not compute travel times; using geographic midpoint",
			}
		}
		lastA, lastB = tA, tB

		if tA+tB == 0 {
			converged = true
			break
		}
		imbalance = (tA - tB) / (tA + tB)
		if math.Abs(imbalance) <= s.ConvergenceThreshold {
			converged = true
			break
		}
		if i == s.MaxIterations-1 {
			break
		}
		// positive imbalance means A travels longer: shift toward A
		t = clamp01(t - imbalance*s.Damping)
		p = geo.PointAt(a, b, t)
	}

	secA, secB := int(math.Round(lastA)), int(math.Round(lastB))
	res := Result{Point: p, TravelTimeA: &secA, TravelTimeB: &secB}
	if !converged {
		res.Warning = fmt.Sprintf("travel times did not fully balance (%.0f%% imbalance)", math.Abs(imbalance)*100)
		observability.SolverNonConverged.Inc()
	}
	if s.LongDistanceSeconds > 0 && secA+secB > s.LongDistanceSeconds {
		res.Warning = appendWarning(res.Warning, "long distance: combined travel time is over an hour")
	}
	return res
}

func (s *Service) seconds(ctx context.Context, from, to models.Coord, mode models.TravelMode) (float64, error) {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, from, to, mode); ok {
			return v, nil
		}
	}
	observability.ProviderCalls.WithLabelValues("travel").Inc()
	v, err := s.Travel.Seconds(ctx, from, to, mode)
	if err != nil {
		observability.ProviderErrors.WithLabelValues("travel").Inc()
		return 0, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, from, to, mode, v)
	}
	return v, nil
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func appendWarning(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
