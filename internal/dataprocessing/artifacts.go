package dataprocessing

import (
	"math"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Cleaned is the result of negative-artifact exclusion.
type Cleaned struct {
	Distance  map[domain.Identity][]float64
	Intensity map[domain.Identity][]float64
	Position  map[domain.Identity]Positions
	Excluded  int
}

// ExcludeNegative drops negative distances, which are sensor artifacts,
// together with the same rows of the intensity and position channels.
// Missing distance cells are dropped as well. Paired channels must have
// the same row count as the distance column they pair with. An organoid
// with no distance data keeps its paired rows minus missing cells.
func ExcludeNegative(
	distance map[domain.Identity][]float64,
	intensity map[domain.Identity][]float64,
	positions map[domain.Identity]Positions,
) (*Cleaned, error) {
	out := &Cleaned{Distance: make(map[domain.Identity][]float64, len(distance))}
	masks := make(map[domain.Identity][]bool, len(distance))

	for id, raw := range distance {
		keep := make([]bool, len(raw))
		clean := make([]float64, 0, len(raw))
		for i, v := range raw {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 {
				out.Excluded++
				continue
			}
			keep[i] = true
			clean = append(clean, v)
		}
		masks[id] = keep
		out.Distance[id] = clean
	}

	if intensity != nil {
		out.Intensity = make(map[domain.Identity][]float64, len(intensity))
		for id, vals := range intensity {
			masked, err := applyMask(id, "intensity", vals, masks[id])
			if err != nil {
				return nil, err
			}
			out.Intensity[id] = masked
		}
	}

	if positions != nil {
		out.Position = make(map[domain.Identity]Positions, len(positions))
		for id, p := range positions {
			var masked [3][]float64
			for i, axis := range domain.Axes {
				vals, err := applyMask(id, "position "+string(axis), p.Axis(axis), masks[id])
				if err != nil {
					return nil, err
				}
				masked[i] = vals
			}
			out.Position[id] = Positions{X: masked[0], Y: masked[1], Z: masked[2]}
		}
	}

	return out, nil
}

// applyMask keeps rows where mask is true. A nil mask keeps every
// non-missing row.
func applyMask(id domain.Identity, channel string, values []float64, mask []bool) ([]float64, error) {
	if mask != nil && len(mask) != len(values) {
		return nil, apperrors.NewExtractionError(id.String(), "paired channel row count differs from distance", nil).
			WithContext("channel", channel).
			WithContext("rows", len(values)).
			WithContext("distance_rows", len(mask))
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || (mask != nil && !mask[i]) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ShiftToMinimum subtracts each organoid's minimum from its values.
func ShiftToMinimum(values map[domain.Identity][]float64) map[domain.Identity][]float64 {
	out := make(map[domain.Identity][]float64, len(values))
	for id, vals := range values {
		if len(vals) == 0 {
			out[id] = nil
			continue
		}
		lo := vals[0]
		for _, v := range vals[1:] {
			if v < lo {
				lo = v
			}
		}
		shifted := make([]float64, len(vals))
		for i, v := range vals {
			shifted[i] = v - lo
		}
		out[id] = shifted
	}
	return out
}
