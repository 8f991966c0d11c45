package campaign

import (
	"sort"
	"strings"
)

// mainPathThresholdPercent and secondaryPathThresholdPercent are the
// default branch-classification cutoffs (spec default: main ≥ 5%,
// secondary in [1%, 5%)).
const (
	mainPathThresholdPercent      = 5.0
	secondaryPathThresholdPercent = 1.0
)

// Branch is one unique ordered sequence of campaign ids taken by one or
// more recipients.
type Branch struct {
	CampaignIDs []string
	Recipients  int
	Percentage  float64
	IsValuable  bool
}

// BranchAnalysis groups recipient paths into branches and classifies
// them into main (≥5%), secondary ([1%,5%)), and valuable (touches any
// tag∈{1,2} campaign) buckets, each capped at its spec-mandated size.
type BranchAnalysis struct {
	MainPaths      []Branch
	SecondaryPaths []Branch
	ValuablePaths  []Branch
}

// AnalyzeBranches groups paths by ordered id-tuple and classifies them.
// valuableCampaigns is the set of campaign ids carrying tag ∈ {1,2}.
func AnalyzeBranches(paths []PathEntry, valuableCampaigns map[string]bool) BranchAnalysis {
	byRecipient := groupByRecipient(paths)
	total := len(byRecipient)

	type branchKey string
	grouped := make(map[branchKey][]string)
	counts := make(map[branchKey]int)

	for _, ordered := range byRecipient {
		ids := make([]string, len(ordered))
		for i, p := range ordered {
			ids[i] = p.CampaignID
		}
		key := branchKey(strings.Join(ids, ">"))
		grouped[key] = ids
		counts[key]++
	}

	var branches []Branch
	for key, ids := range grouped {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[key]) / float64(total) * 100
		}
		valuable := false
		for _, id := range ids {
			if valuableCampaigns[id] {
				valuable = true
				break
			}
		}
		branches = append(branches, Branch{
			CampaignIDs: ids,
			Recipients:  counts[key],
			Percentage:  pct,
			IsValuable:  valuable,
		})
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].Recipients > branches[j].Recipients })

	var main, secondary, valuable []Branch
	for _, b := range branches {
		if b.Percentage >= mainPathThresholdPercent {
			main = append(main, b)
		} else if b.Percentage >= secondaryPathThresholdPercent {
			secondary = append(secondary, b)
		}
		if b.IsValuable {
			valuable = append(valuable, b)
		}
	}

	return BranchAnalysis{
		MainPaths:      capBranches(main, 10),
		SecondaryPaths: capBranches(secondary, 20),
		ValuablePaths:  capBranches(valuable, 20),
	}
}

func capBranches(branches []Branch, n int) []Branch {
	if len(branches) > n {
		return branches[:n]
	}
	return branches
}
