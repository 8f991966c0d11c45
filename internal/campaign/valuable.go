package campaign

import "sort"

// ValuableCampaignAnalysis attaches top predecessors/successors and a
// DAG level to one valuable campaign (tag ∈ {1,2}).
type ValuableCampaignAnalysis struct {
	CampaignID   string
	DAGLevel     int
	Predecessors []Transition
	Successors   []Transition
}

// AnalyzeValuableCampaigns computes, for every id in valuableCampaignIDs,
// its top-5 predecessors and top-5 successors by recipient count plus
// its DAG level, from the full transition and level tables.
func AnalyzeValuableCampaigns(valuableCampaignIDs []string, transitions []Transition, levels map[string]int) []ValuableCampaignAnalysis {
	out := make([]ValuableCampaignAnalysis, 0, len(valuableCampaignIDs))
	for _, id := range valuableCampaignIDs {
		var preds, succs []Transition
		for _, t := range transitions {
			if t.To == id {
				preds = append(preds, t)
			}
			if t.From == id {
				succs = append(succs, t)
			}
		}
		sort.Slice(preds, func(i, j int) bool { return preds[i].Recipients > preds[j].Recipients })
		sort.Slice(succs, func(i, j int) bool { return succs[i].Recipients > succs[j].Recipients })

		out = append(out, ValuableCampaignAnalysis{
			CampaignID:   id,
			DAGLevel:     levels[id],
			Predecessors: topN(preds, 5),
			Successors:   topN(succs, 5),
		})
	}
	return out
}

func topN(list []Transition, n int) []Transition {
	if len(list) > n {
		return list[:n]
	}
	return list
}
