package exposure

import (
	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// CountyValue is the single-scalar view of a county's hazard metric for one
// storm, the input shape for community roll-up.
type CountyValue struct {
	FIPS    string
	StormID string
	Value   float64
}

// CommunityValue is the rolled-up metric for one (community, storm) pair.
// Max drives the exposure decision: a community is exposed when its
// worst-hit member county is. Mean is a descriptive statistic only.
type CommunityValue struct {
	Community string
	StormID   string
	Mean      float64
	Max       float64
	Members   int
}

// minDistanceByCommunity reduces a (storm, county) distance index to the
// nearest member county per (community, storm). Min, not max: a community is
// "within" a distance when any member county is.
func minDistanceByCommunity(dist map[pairKey]float64, communities domain.CommunityMap) map[pairKey]float64 {
	out := make(map[pairKey]float64)
	for key, d := range dist {
		for name, members := range communities {
			if !members.Has(key.loc) {
				continue
			}
			ck := pairKey{stormID: key.stormID, loc: name}
			if cur, ok := out[ck]; !ok || d < cur {
				out[ck] = d
			}
		}
	}
	return out
}

// AggregateCommunity joins county values to their communities and reduces
// each (community, storm) group to max and mean. County rows outside every
// community are dropped. A county listed in several communities fans out and
// counts toward each one independently. No threshold is applied here; groups
// appear in first-seen order per sorted community name.
func AggregateCommunity(values []CountyValue, communities domain.CommunityMap) []CommunityValue {
	type groupKey struct {
		community string
		stormID   string
	}
	type accum struct {
		sum   float64
		max   float64
		count int
	}

	index := make(map[groupKey]int)
	order := make([]groupKey, 0)
	groups := make([]accum, 0)

	// Sorted names keep the fan-out deterministic when a county belongs to
	// more than one community.
	names := communities.Names()

	for _, v := range values {
		for _, name := range names {
			if !communities[name].Has(v.FIPS) {
				continue
			}
			key := groupKey{community: name, stormID: v.StormID}
			i, ok := index[key]
			if !ok {
				i = len(groups)
				index[key] = i
				order = append(order, key)
				groups = append(groups, accum{max: v.Value})
			}
			g := &groups[i]
			g.sum += v.Value
			g.count++
			if v.Value > g.max {
				g.max = v.Value
			}
		}
	}

	out := make([]CommunityValue, 0, len(groups))
	for i, key := range order {
		g := groups[i]
		out = append(out, CommunityValue{
			Community: key.community,
			StormID:   key.stormID,
			Mean:      g.sum / float64(g.count),
			Max:       g.max,
			Members:   g.count,
		})
	}
	return out
}
