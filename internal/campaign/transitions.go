package campaign

import "sort"

// Transition is one observed (from, to) campaign step with the count
// of distinct recipients who made it and that count as a share of all
// recipients considered.
type Transition struct {
	From       string
	To         string
	Recipients int
	Ratio      float64
}

// GetCampaignTransitions walks every recipient path's consecutive
// campaign pairs, counts distinct recipients per (from, to), and
// returns the list sorted by descending recipient count.
func GetCampaignTransitions(paths []PathEntry) []Transition {
	byRecipient := groupByRecipient(paths)
	totalRecipients := len(byRecipient)

	type key struct{ from, to string }
	counts := make(map[key]map[string]bool)

	for recipient, ordered := range byRecipient {
		for i := 0; i+1 < len(ordered); i++ {
			k := key{ordered[i].CampaignID, ordered[i+1].CampaignID}
			if counts[k] == nil {
				counts[k] = make(map[string]bool)
			}
			counts[k][recipient] = true
		}
	}

	out := make([]Transition, 0, len(counts))
	for k, recipients := range counts {
		ratio := 0.0
		if totalRecipients > 0 {
			ratio = float64(len(recipients)) / float64(totalRecipients)
		}
		out = append(out, Transition{From: k.from, To: k.to, Recipients: len(recipients), Ratio: ratio})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Recipients != out[j].Recipients {
			return out[i].Recipients > out[j].Recipients
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
