package calc

import (
	"fmt"
	"math"
	"sort"
)

// Tier names a fee-rate/confirmation-time bucket
type Tier string

const (
	TierFast   Tier = "fast"
	TierMedium Tier = "medium"
	TierSlow   Tier = "slow"
)

// Tiers lists every tier from most to least expensive
var Tiers = []Tier{TierFast, TierMedium, TierSlow}

// ParseTier validates a tier name
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierFast, TierMedium, TierSlow:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
}

// FeeObservation is a single fee rate sample. Tier is set when the
// upstream provider already labels its estimates.
type FeeObservation struct {
	SatPerByte     float64
	ConfirmMinutes float64
	Tier           Tier
}

// FeeTier is the price and expected latency of one tier
type FeeTier struct {
	SatPerByte     float64
	ConfirmMinutes float64
}

// FeeEstimate holds the three tiers. Fast is never cheaper and never
// slower than Medium, and Medium likewise relative to Slow.
type FeeEstimate struct {
	Fast   FeeTier
	Medium FeeTier
	Slow   FeeTier
}

// Get returns the named tier
func (e *FeeEstimate) Get(t Tier) (FeeTier, bool) {
	switch t {
	case TierFast:
		return e.Fast, true
	case TierMedium:
		return e.Medium, true
	case TierSlow:
		return e.Slow, true
	}
	return FeeTier{}, false
}

// EstimateFees buckets raw observations into fast, medium and slow tiers.
// Named observations are mapped directly when all three tiers are present;
// otherwise the highest, median and lowest priced samples are used.
// Samples with negative or non-finite values are ignored.
func EstimateFees(raw []FeeObservation) (*FeeEstimate, error) {
	obs := make([]FeeObservation, 0, len(raw))
	for _, o := range raw {
		if !validObservation(o) {
			continue
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no usable fee observations", ErrInsufficientData)
	}

	est, ok := mapNamedTiers(obs)
	if !ok {
		est = selectTiers(obs)
	}
	est.restoreOrder()
	return est, nil
}

func validObservation(o FeeObservation) bool {
	for _, v := range []float64{o.SatPerByte, o.ConfirmMinutes} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func mapNamedTiers(obs []FeeObservation) (*FeeEstimate, bool) {
	named := make(map[Tier]FeeTier, len(Tiers))
	for _, o := range obs {
		if o.Tier == "" {
			continue
		}
		if _, seen := named[o.Tier]; !seen {
			named[o.Tier] = FeeTier{SatPerByte: o.SatPerByte, ConfirmMinutes: o.ConfirmMinutes}
		}
	}
	for _, t := range Tiers {
		if _, ok := named[t]; !ok {
			return nil, false
		}
	}
	return &FeeEstimate{
		Fast:   named[TierFast],
		Medium: named[TierMedium],
		Slow:   named[TierSlow],
	}, true
}

// selectTiers orders by descending price, breaking ties on the quicker
// confirmation. For an even count the median is the pricier middle sample.
func selectTiers(obs []FeeObservation) *FeeEstimate {
	sorted := make([]FeeObservation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SatPerByte != sorted[j].SatPerByte {
			return sorted[i].SatPerByte > sorted[j].SatPerByte
		}
		return sorted[i].ConfirmMinutes < sorted[j].ConfirmMinutes
	})

	pick := func(o FeeObservation) FeeTier {
		return FeeTier{SatPerByte: o.SatPerByte, ConfirmMinutes: o.ConfirmMinutes}
	}
	return &FeeEstimate{
		Fast:   pick(sorted[0]),
		Medium: pick(sorted[(len(sorted)-1)/2]),
		Slow:   pick(sorted[len(sorted)-1]),
	}
}

// restoreOrder sorts prices descending and latencies ascending across the
// tiers so inconsistent provider data still yields a monotone estimate.
func (e *FeeEstimate) restoreOrder() {
	prices := []float64{e.Fast.SatPerByte, e.Medium.SatPerByte, e.Slow.SatPerByte}
	minutes := []float64{e.Fast.ConfirmMinutes, e.Medium.ConfirmMinutes, e.Slow.ConfirmMinutes}
	sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	sort.Float64s(minutes)

	e.Fast = FeeTier{SatPerByte: prices[0], ConfirmMinutes: minutes[0]}
	e.Medium = FeeTier{SatPerByte: prices[1], ConfirmMinutes: minutes[1]}
	e.Slow = FeeTier{SatPerByte: prices[2], ConfirmMinutes: minutes[2]}
}
