package placement

import (
	"fmt"
	"math/rand"

	"github.com/merabytes/acido/pkg/acido"
)

const maxGroupSize = 10

// GroupPlan is one planned container group: the shards it will carry and
// the region it was assigned.
type GroupPlan struct {
	Shards []acido.InputShard
	Region string
}

// Plan buckets shards into groups of at most maxGroupSize, in order, and
// assigns each group a region chosen independently and uniformly at random
// from regions. Each plan holds copies of its shards with GroupOrdinal set
// to the 1-based group index; the caller's shards slice is not modified.
func Plan(shards []acido.InputShard, regions []string, rng *rand.Rand) ([]GroupPlan, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("placement: region list must be non-empty")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	groupCount := (len(shards) + maxGroupSize - 1) / maxGroupSize
	if groupCount == 0 {
		return nil, nil
	}

	plans := make([]GroupPlan, 0, groupCount)
	for start := 0; start < len(shards); start += maxGroupSize {
		end := start + maxGroupSize
		if end > len(shards) {
			end = len(shards)
		}

		ordinal := len(plans) + 1
		group := make([]acido.InputShard, end-start)
		copy(group, shards[start:end])
		for i := range group {
			group[i].GroupOrdinal = ordinal
		}

		plans = append(plans, GroupPlan{
			Shards: group,
			Region: ChooseRegion(regions, nil, rng),
		})
	}

	return plans, nil
}

// ChooseRegion picks a region uniformly at random from regions, excluding
// any region present in exclude. Used both for initial assignment and for
// the region-swap retry on QuotaExceeded, where the failing region is
// excluded for that group only. Returns "" if every region is excluded.
func ChooseRegion(regions []string, exclude map[string]bool, rng *rand.Rand) string {
	candidates := regions
	if len(exclude) > 0 {
		candidates = make([]string, 0, len(regions))
		for _, r := range regions {
			if !exclude[r] {
				candidates = append(candidates, r)
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rng.Intn(len(candidates))]
}
