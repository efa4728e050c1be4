package trending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
)

func post(id, author, text string, ts time.Time, likes, reposts, replies int) models.SocialPost {
	return models.SocialPost{
		ID:           id,
		AuthorHandle: author,
		Text:         text,
		Timestamp:    ts,
		Engagement:   models.Engagement{Likes: likes, Reposts: reposts, Replies: replies},
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	aggregator := NewAggregator(NewRegexExtractor(config.DefaultKnownTickers))

	posts := []models.SocialPost{
		post("1", "alice", "love $QR today", now.Add(-time.Hour), 3, 1, 1),
		post("2", "bob", "$QR and $QR again", now.Add(-2*time.Hour), 2, 1, 0),
		post("3", "bob", "nothing here", now.Add(-3*time.Hour), 0, 0, 0),
	}

	mentions := aggregator.Aggregate(posts)
	require.Equal(t, 1, mentions.Len())

	qr, ok := mentions.Get("QR")
	require.True(t, ok)
	// symbols are counted once per post
	assert.Equal(t, 2, qr.MentionCount)
	assert.Equal(t, 8, qr.EngagementScore)
	assert.ElementsMatch(t, []string{"alice", "bob"}, qr.MentionedBy)
	assert.Equal(t, []time.Time{now.Add(-time.Hour), now.Add(-2 * time.Hour)}, qr.RecentMentions)
}

func TestAggregator_SameAuthorSeveralPosts(t *testing.T) {
	now := time.Now()
	aggregator := NewAggregator(NewRegexExtractor(config.DefaultKnownTickers))

	posts := []models.SocialPost{
		post("1", "alice", "$MON", now, 1, 0, 0),
		post("2", "alice", "mon again", now, 2, 0, 0),
		post("3", "alice", "MON MON MON", now, 4, 0, 0),
	}

	mon, ok := aggregator.Aggregate(posts).Get("MON")
	require.True(t, ok)
	assert.Equal(t, 3, mon.MentionCount)
	assert.Equal(t, 7, mon.EngagementScore)
	assert.Equal(t, []string{"alice"}, mon.MentionedBy)
	assert.Len(t, mon.RecentMentions, 3)
}

func TestAggregator_FirstSeenOrder(t *testing.T) {
	now := time.Now()
	aggregator := NewAggregator(NewRegexExtractor(config.DefaultKnownTickers))

	posts := []models.SocialPost{
		post("1", "alice", "$DAK then usdc", now, 0, 0, 0),
		post("2", "bob", "$CHOG and $DAK", now, 0, 0, 0),
	}

	var symbols []string
	for _, mention := range aggregator.Aggregate(posts).List() {
		symbols = append(symbols, mention.Symbol)
	}
	assert.Equal(t, []string{"DAK", "USDC", "CHOG"}, symbols)
}

func TestAggregator_Empty(t *testing.T) {
	aggregator := NewAggregator(NewRegexExtractor(config.DefaultKnownTickers))

	mentions := aggregator.Aggregate(nil)
	assert.Equal(t, 0, mentions.Len())
	assert.Empty(t, mentions.List())

	_, ok := mentions.Get("QR")
	assert.False(t, ok)
}
