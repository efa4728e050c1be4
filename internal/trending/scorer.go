package trending

import (
	"time"

	"github.com/monadswap/signals-bot/internal/models"
)

// Score weights
const (
	mentionWeight    = 0.4
	engagementWeight = 0.3
	authorWeight     = 0.2
	recencyWeight    = 0.1
)

const (
	recentWindow = 24 * time.Hour
	weekWindow   = 7 * 24 * time.Hour
)

// Scorer computes trending scores against a clock
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer using the wall clock
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// Score returns the weighted trending score of mention
func (s *Scorer) Score(mention *models.TokenMention) float64 {
	var avgEngagement float64
	if mention.MentionCount > 0 {
		avgEngagement = float64(mention.EngagementScore) / float64(mention.MentionCount)
	}

	return mentionWeight*float64(mention.MentionCount) +
		engagementWeight*avgEngagement +
		authorWeight*float64(len(mention.MentionedBy)) +
		recencyWeight*TimeDecay(mention.RecentMentions, s.now())
}

// TimeDecay weighs mentions younger than 24h twice (they also fall in the 7d
// window) and normalises by the number of mentions. It is 0 for no mentions.
func TimeDecay(timestamps []time.Time, now time.Time) float64 {
	if len(timestamps) == 0 {
		return 0
	}

	var within24h, within7d int
	for _, ts := range timestamps {
		age := now.Sub(ts)
		if age < recentWindow {
			within24h++
		}
		if age < weekWindow {
			within7d++
		}
	}

	return float64(2*within24h+within7d) / float64(len(timestamps))
}
