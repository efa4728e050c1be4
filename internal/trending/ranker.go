package trending

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/pricing"
)

// Ranker scores mentions, attaches token metadata and orders the result
type Ranker struct {
	scorer      *Scorer
	lookup      pricing.TokenLookup
	concurrency int
}

// NewRanker creates a ranker. lookup may be nil, in which case no token is enriched.
func NewRanker(scorer *Scorer, lookup pricing.TokenLookup, concurrency int) *Ranker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ranker{
		scorer:      scorer,
		lookup:      lookup,
		concurrency: concurrency,
	}
}

// Rank returns every mention as a TrendingToken, highest score first. Equal
// scores keep the enumeration order of mentions. Lookup failures only leave
// the token without price data.
func (r *Ranker) Rank(ctx context.Context, mentions *Mentions) []models.TrendingToken {
	list := mentions.List()
	tokens := make([]models.TrendingToken, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, mention := range list {
		tokens[i] = models.TrendingToken{
			TokenMention:  *mention,
			TrendingScore: r.scorer.Score(mention),
		}

		if r.lookup == nil {
			continue
		}

		g.Go(func() error {
			r.enrich(gctx, &tokens[i])
			return nil
		})
	}

	// enrich never fails the group
	_ = g.Wait()

	sort.SliceStable(tokens, func(a, b int) bool {
		return tokens[a].TrendingScore > tokens[b].TrendingScore
	})

	return tokens
}

func (r *Ranker) enrich(ctx context.Context, token *models.TrendingToken) {
	info, err := r.lookup.LookupToken(ctx, token.Symbol)
	if err != nil {
		logrus.WithField("symbol", token.Symbol).Warnf("Token lookup failed, proceeding without price data: %v", err)
		return
	}
	if info == nil {
		logrus.WithField("symbol", token.Symbol).Debug("Token not found, proceeding without price data")
		return
	}

	token.ContractAddress = info.Address
	if info.HasPrice() {
		token.PriceData = &models.PriceData{
			CurrentUSD:    info.USDPerToken.InexactFloat64(),
			ConfidencePct: info.ConfidencePct.InexactFloat64(),
		}
	}
}
