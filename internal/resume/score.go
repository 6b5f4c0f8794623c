package resume

import (
	"math"
	"strings"
)

// Score computes the ATS score of a resume against the keyword map.
// Pure function: lowercased substring hits per category, weighted and
// scaled to 0-100, rounded to two decimals.
func Score(text string, keywords Keywords) float64 {
	text = strings.ToLower(text)

	var score float64
	for category, keys := range keywords {
		if len(keys) == 0 {
			continue
		}

		hits := 0
		for _, key := range keys {
			if strings.Contains(text, key) {
				hits++
			}
		}

		score += (float64(hits) / float64(len(keys))) * categoryWeights[category]
	}

	return math.Round(score*100*100) / 100
}
