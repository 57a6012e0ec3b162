package matching

import (
	"fmt"
	"math"
	"sort"
)

// Scoring weights. Distance dominates, then skills, then availability.
const (
	weightDistance     = 0.40
	weightSkills       = 0.35
	weightAvailability = 0.25
)

// minMatchScore is the hard floor below which a candidate is discarded.
const minMatchScore = 0.30

// unknownDistanceKM is the sentinel used when either side has no usable
// coordinates.
const unknownDistanceKM = 999

const earthRadiusKM = 6371

// RankedOpportunity pairs a candidate opportunity with its score.
type RankedOpportunity struct {
	Opportunity Opportunity
	Score       MatchScore
}

// Score computes the weighted match score between a volunteer and an
// opportunity. Pure function of its inputs.
func Score(volunteer Volunteer, opportunity Opportunity) MatchScore {
	components := make(map[string]float64, 3)
	var explanation []string

	distanceKM := DistanceKM(volunteer.Location, opportunity.Location)
	switch {
	case distanceKM <= 5:
		components["distance"] = 1.0
		explanation = append(explanation, "Very close (< 5km)")
	case distanceKM <= 15:
		components["distance"] = 0.8
		explanation = append(explanation, "Nearby (< 15km)")
	case distanceKM <= 30:
		components["distance"] = 0.5
		explanation = append(explanation, "Moderate distance (< 30km)")
	default:
		components["distance"] = 0.2
		explanation = append(explanation, fmt.Sprintf("Far (%.1fkm)", distanceKM))
	}

	required := toSet(opportunity.RequiredSkills)
	if len(required) > 0 {
		requiredCount := len(required)
		matched := 0
		for _, skill := range volunteer.Skills {
			if _, ok := required[skill]; ok {
				matched++
				delete(required, skill)
			}
		}
		skillMatch := float64(matched) / float64(requiredCount)
		components["skills"] = skillMatch

		pct := int(math.Round(skillMatch * 100))
		switch {
		case skillMatch >= 1.0:
			explanation = append(explanation, "All skills matched")
		case skillMatch >= 0.5:
			explanation = append(explanation, fmt.Sprintf("%d%% skills matched", pct))
		default:
			explanation = append(explanation, fmt.Sprintf("Only %d%% skills matched", pct))
		}
	} else {
		components["skills"] = 1.0
		explanation = append(explanation, "No specific skills required")
	}

	slots := toSet(opportunity.TimeSlots)
	if len(slots) > 0 && len(volunteer.Availability) > 0 {
		slotCount := len(slots)
		overlap := 0
		for _, a := range volunteer.Availability {
			if _, ok := slots[a]; ok {
				overlap++
				delete(slots, a)
			}
		}
		availMatch := float64(overlap) / float64(slotCount)
		components["availability"] = availMatch

		switch {
		case availMatch >= 0.8:
			explanation = append(explanation, "Excellent time match")
		case availMatch >= 0.5:
			explanation = append(explanation, "Good time match")
		default:
			explanation = append(explanation, "Limited time overlap")
		}
	} else {
		// Neutral when either side left its schedule unspecified.
		components["availability"] = 0.5
	}

	total := components["distance"]*weightDistance +
		components["skills"]*weightSkills +
		components["availability"]*weightAvailability

	return MatchScore{
		Total:       math.Min(total, 1.0),
		Components:  components,
		Explanation: explanation,
	}
}

// DistanceKM computes the great-circle distance between two points using
// the haversine formula. Missing coordinates on either side yield the
// sentinel distance rather than an error.
func DistanceKM(a, b Location) float64 {
	if a.IsZero() || b.IsZero() {
		return unknownDistanceKM
	}

	dlat := radians(b.Latitude - a.Latitude)
	dlon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKM * c
}

// RankOpportunities scores every candidate, drops those below the minimum
// threshold, sorts by total descending with ties broken by opportunity id
// ascending, and truncates to limit. Persisting the results is the
// caller's responsibility.
func RankOpportunities(volunteer Volunteer, opportunities []Opportunity, limit int) []RankedOpportunity {
	var ranked []RankedOpportunity
	for _, opportunity := range opportunities {
		score := Score(volunteer, opportunity)
		if score.Total >= minMatchScore {
			ranked = append(ranked, RankedOpportunity{Opportunity: opportunity, Score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Total != ranked[j].Score.Total {
			return ranked[i].Score.Total > ranked[j].Score.Total
		}
		return ranked[i].Opportunity.ID < ranked[j].Opportunity.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
