package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeBranchesClassification(t *testing.T) {
	// 100 recipients: 10 take a->b (10%, main), 2 take a->c (2%, secondary),
	// 1 takes a->d (1%, secondary, boundary), the rest each take their own
	// single campaign (1% each, secondary).
	var paths []PathEntry
	addPath := func(recipient string, ids ...string) {
		for i, id := range ids {
			paths = append(paths, PathEntry{Recipient: recipient, CampaignID: id, SequenceOrder: i})
		}
	}

	for i := 0; i < 10; i++ {
		addPath(idFor("main", i), "a", "b")
	}
	for i := 0; i < 2; i++ {
		addPath(idFor("sec", i), "a", "c")
	}
	addPath("boundary", "a", "d")
	for i := 0; i < 87; i++ {
		addPath(idFor("solo", i), idFor("e", i))
	}

	analysis := AnalyzeBranches(paths, map[string]bool{"b": true})

	require.NotEmpty(t, analysis.MainPaths)
	assert.Equal(t, 10, analysis.MainPaths[0].Recipients)
	assert.True(t, analysis.MainPaths[0].IsValuable)

	require.NotEmpty(t, analysis.SecondaryPaths)
}

func TestAnalyzeBranchesCapsMainAt10(t *testing.T) {
	var paths []PathEntry
	for b := 0; b < 15; b++ {
		for r := 0; r < 10; r++ {
			paths = append(paths,
				PathEntry{Recipient: idFor2(b, r), CampaignID: idFor("branch", b), SequenceOrder: 0})
		}
	}
	analysis := AnalyzeBranches(paths, nil)
	assert.LessOrEqual(t, len(analysis.MainPaths), 10)
}

func idFor(prefix string, i int) string { return prefix + "-" + string(rune('a'+i%26)) + itoa(i) }
func idFor2(b, r int) string            { return idFor("r", b*100+r) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}
