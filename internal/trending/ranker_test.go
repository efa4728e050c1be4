package trending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/pricing"
)

type fakeLookup struct {
	mu     sync.Mutex
	tokens map[string]*pricing.TokenInfo
	fail   map[string]bool
	calls  []string
}

func (f *fakeLookup) LookupToken(ctx context.Context, symbol string) (*pricing.TokenInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)

	if f.fail[symbol] {
		return nil, errors.New("lookup unavailable")
	}
	return f.tokens[symbol], nil
}

func rankFixture(now time.Time) *Mentions {
	aggregator := NewAggregator(NewRegexExtractor(config.DefaultKnownTickers))
	return aggregator.Aggregate([]models.SocialPost{
		post("1", "alice", "$DAK", now, 0, 0, 0),
		post("2", "alice", "$CHOG to the moon", now, 10, 5, 5),
		post("3", "bob", "$CHOG $YAKI", now, 10, 0, 0),
		post("4", "carol", "$CHOG", now, 0, 0, 0),
		post("5", "dave", "$YAKI", now, 0, 0, 0),
	})
}

func TestRanker_Rank(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{
		tokens: map[string]*pricing.TokenInfo{
			"CHOG": {Address: "0xchog", Symbol: "CHOG", USDPerToken: decimal.RequireFromString("0.42"), ConfidencePct: decimal.NewFromInt(90)},
			"DAK":  {Address: "0xdak", Symbol: "DAK"},
		},
		fail: map[string]bool{"YAKI": true},
	}

	ranker := NewRanker(fixedScorer(now), lookup, 2)
	tokens := ranker.Rank(context.Background(), rankFixture(now))

	require.Len(t, tokens, 3)
	assert.Equal(t, []string{"CHOG", "YAKI", "DAK"}, []string{tokens[0].Symbol, tokens[1].Symbol, tokens[2].Symbol})

	for i := 1; i < len(tokens); i++ {
		assert.GreaterOrEqual(t, tokens[i-1].TrendingScore, tokens[i].TrendingScore)
	}

	chog := tokens[0]
	assert.Equal(t, "0xchog", chog.ContractAddress)
	require.NotNil(t, chog.PriceData)
	assert.InDelta(t, 0.42, chog.PriceData.CurrentUSD, 1e-12)
	assert.InDelta(t, 90, chog.PriceData.ConfidencePct, 1e-12)
	assert.Equal(t, 3, chog.MentionCount)

	// failed lookup keeps the token
	yaki := tokens[1]
	assert.Empty(t, yaki.ContractAddress)
	assert.Nil(t, yaki.PriceData)

	// known token without a price
	dak := tokens[2]
	assert.Equal(t, "0xdak", dak.ContractAddress)
	assert.Nil(t, dak.PriceData)

	assert.ElementsMatch(t, []string{"DAK", "CHOG", "YAKI"}, lookup.calls)
}

func TestRanker_TiesKeepEnumerationOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	aggregator := NewAggregator(NewRegexExtractor(nil))
	mentions := aggregator.Aggregate([]models.SocialPost{
		post("1", "alice", "$ZZ $AA $MM", now, 1, 1, 1),
	})

	ranker := NewRanker(fixedScorer(now), nil, 4)
	tokens := ranker.Rank(context.Background(), mentions)

	require.Len(t, tokens, 3)
	assert.Equal(t, "ZZ", tokens[0].Symbol)
	assert.Equal(t, "AA", tokens[1].Symbol)
	assert.Equal(t, "MM", tokens[2].Symbol)
	assert.Equal(t, tokens[0].TrendingScore, tokens[2].TrendingScore)
}

func TestRanker_Empty(t *testing.T) {
	ranker := NewRanker(NewScorer(), &fakeLookup{}, 0)

	tokens := ranker.Rank(context.Background(), newMentions())
	assert.Empty(t, tokens)
}
