package detector

import (
	"math"

	"support_tracker/internal/feature/supports/domain/entity"
)

const (
	touchWeight   = 0.4
	volumeWeight  = 0.3
	recencyWeight = 0.3

	maxVolumeRatio = 2.0
)

// isLocalMinimum reports whether lows[i] is not above any low in the w
// candles before it or the w candles after it.
func isLocalMinimum(lows []float64, i, w int) bool {
	p := lows[i]
	for _, l := range lows[i-w : i] {
		if l < p {
			return false
		}
	}
	for _, l := range lows[i+1 : i+w+1] {
		if l < p {
			return false
		}
	}
	return true
}

// countTouches counts the lows inside [p(1-tol), p(1+tol)] and returns the
// index of the latest one, or -1 when there is none.
func countTouches(lows []float64, p, tol float64) (int, int) {
	lower, upper := p*(1-tol), p*(1+tol)
	n, last := 0, -1
	for j, l := range lows {
		if l >= lower && l <= upper {
			n++
			last = j
		}
	}
	return n, last
}

// volumeScore maps the pivot volume relative to the series mean into [0, 1].
func volumeScore(v, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return math.Min(v/mean, maxVolumeRatio) / maxVolumeRatio
}

// recency is 1 minus the closest relative approach of any low from index
// `from` onward to p. It is not clamped and goes negative when every later
// low is more than p away.
func recency(lows []float64, from int, p float64) float64 {
	closest := math.Inf(1)
	for _, l := range lows[from:] {
		closest = math.Min(closest, math.Abs(l-p))
	}
	return 1 - closest/p
}

func strength(touches, minTouches int, volScore, rec float64) float64 {
	touchScore := math.Min(float64(touches)/float64(minTouches), 1)
	return round2(100 * (touchWeight*touchScore + volumeWeight*volScore + recencyWeight*rec))
}

// filterClose keeps candidates in order, dropping any whose price lies
// closer than the minimum distance to an already kept level. The minimum
// distance is pct percent of the spread between the highest and lowest
// candidate. Equal prices are always dropped, even when the spread is zero.
func filterClose(candidates []entity.SupportLevel, pct float64) []entity.SupportLevel {
	if len(candidates) == 0 {
		return []entity.SupportLevel{}
	}
	lo, hi := candidates[0].Price, candidates[0].Price
	for _, c := range candidates[1:] {
		lo = math.Min(lo, c.Price)
		hi = math.Max(hi, c.Price)
	}
	minDistance := (hi - lo) * pct / 100

	kept := []entity.SupportLevel{candidates[0]}
	for _, c := range candidates[1:] {
		ok := true
		for _, k := range kept {
			diff := math.Abs(c.Price - k.Price)
			if diff == 0 || diff < minDistance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
