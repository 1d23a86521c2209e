package derived

import "organoidcli/pkg/contracts/domain"

// OrganoidVolumes converts surface-model volumes into organoid volumes:
// the full reconstruction volume minus the model's inner volume.
func OrganoidVolumes(full float64, model map[domain.Identity]float64) map[domain.Identity]float64 {
	out := make(map[domain.Identity]float64, len(model))
	for id, v := range model {
		out[id] = full - v
	}
	return out
}

// OrganoidAreas converts surface-model areas into organoid surface areas:
// the model area minus the full reconstruction's area.
func OrganoidAreas(full float64, model map[domain.Identity]float64) map[domain.Identity]float64 {
	out := make(map[domain.Identity]float64, len(model))
	for id, v := range model {
		out[id] = v - full
	}
	return out
}
