package trending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/monadswap/signals-bot/internal/models"
)

func fixedScorer(now time.Time) *Scorer {
	return &Scorer{now: func() time.Time { return now }}
}

func TestTimeDecay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		timestamps []time.Time
		expected   float64
	}{
		{name: "No mentions", timestamps: nil, expected: 0},
		{name: "All within a day", timestamps: []time.Time{now.Add(-time.Hour), now.Add(-23 * time.Hour)}, expected: 3},
		{name: "Exactly one day old", timestamps: []time.Time{now.Add(-24 * time.Hour)}, expected: 1},
		{name: "Exactly one week old", timestamps: []time.Time{now.Add(-7 * 24 * time.Hour)}, expected: 0},
		{name: "Mixed ages", timestamps: []time.Time{now.Add(-time.Hour), now.Add(-3 * 24 * time.Hour), now.Add(-30 * 24 * time.Hour)}, expected: 4.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TimeDecay(tt.timestamps, now), 1e-9)
		})
	}
}

func TestScorer_Score(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	scorer := fixedScorer(now)

	tests := []struct {
		name     string
		mention  models.TokenMention
		expected float64
	}{
		{
			name: "Two recent mentions",
			mention: models.TokenMention{
				MentionCount:    2,
				EngagementScore: 8,
				MentionedBy:     []string{"alice", "bob"},
				RecentMentions:  []time.Time{now.Add(-time.Hour), now.Add(-2 * 24 * time.Hour)},
			},
			// 0.4*2 + 0.3*4 + 0.2*2 + 0.1*((2*1+2)/2)
			expected: 2.6,
		},
		{
			name: "Old single mention",
			mention: models.TokenMention{
				MentionCount:    1,
				EngagementScore: 0,
				MentionedBy:     []string{"alice"},
				RecentMentions:  []time.Time{now.Add(-30 * 24 * time.Hour)},
			},
			expected: 0.6,
		},
		{
			name:     "Zero count does not divide by zero",
			mention:  models.TokenMention{EngagementScore: 10},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Score(&tt.mention), 1e-9)
		})
	}
}

func TestScorer_MonotonicInMentionCount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	scorer := fixedScorer(now)

	previous := -1.0
	for n := 1; n <= 20; n++ {
		authors := make([]string, 0, n)
		timestamps := make([]time.Time, 0, n)
		for i := 0; i < n; i++ {
			authors = append(authors, string(rune('a'+i)))
			timestamps = append(timestamps, now.Add(-time.Duration(i)*time.Hour))
		}

		score := scorer.Score(&models.TokenMention{
			MentionCount:    n,
			EngagementScore: 5 * n,
			MentionedBy:     authors,
			RecentMentions:  timestamps,
		})

		assert.GreaterOrEqual(t, score, previous, "score decreased at mentionCount=%d", n)
		previous = score
	}
}
