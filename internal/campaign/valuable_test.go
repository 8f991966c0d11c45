package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeValuableCampaigns(t *testing.T) {
	transitions := []Transition{
		{From: "a", To: "v", Recipients: 10},
		{From: "b", To: "v", Recipients: 5},
		{From: "v", To: "c", Recipients: 8},
	}
	levels := map[string]int{"v": 3}

	out := AnalyzeValuableCampaigns([]string{"v"}, transitions, levels)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].DAGLevel)
	require.Len(t, out[0].Predecessors, 2)
	assert.Equal(t, "a", out[0].Predecessors[0].From)
	require.Len(t, out[0].Successors, 1)
	assert.Equal(t, "c", out[0].Successors[0].To)
}

func TestAnalyzeValuableCampaignsCapsAtFive(t *testing.T) {
	var transitions []Transition
	for i := 0; i < 8; i++ {
		transitions = append(transitions, Transition{From: idFor("p", i), To: "v", Recipients: i + 1})
	}
	out := AnalyzeValuableCampaigns([]string{"v"}, transitions, map[string]int{})
	assert.Len(t, out[0].Predecessors, 5)
}
