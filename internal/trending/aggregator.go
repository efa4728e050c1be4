package trending

import (
	"slices"
	"time"

	"github.com/monadswap/signals-bot/internal/models"
)

// Mentions maps symbols to their aggregated mention, enumerated in first-seen order
type Mentions struct {
	order    []string
	bySymbol map[string]*models.TokenMention
}

func newMentions() *Mentions {
	return &Mentions{bySymbol: make(map[string]*models.TokenMention)}
}

// Get returns the mention for symbol
func (m *Mentions) Get(symbol string) (*models.TokenMention, bool) {
	mention, ok := m.bySymbol[symbol]
	return mention, ok
}

// Len returns the number of distinct symbols
func (m *Mentions) Len() int {
	return len(m.order)
}

// List returns the mentions in first-seen order
func (m *Mentions) List() []*models.TokenMention {
	list := make([]*models.TokenMention, 0, len(m.order))
	for _, symbol := range m.order {
		list = append(list, m.bySymbol[symbol])
	}
	return list
}

func (m *Mentions) getOrCreate(symbol string) *models.TokenMention {
	if mention, ok := m.bySymbol[symbol]; ok {
		return mention
	}
	mention := &models.TokenMention{
		Symbol:         symbol,
		MentionedBy:    []string{},
		RecentMentions: []time.Time{},
	}
	m.bySymbol[symbol] = mention
	m.order = append(m.order, symbol)
	return mention
}

// Aggregator folds a batch of posts into per-symbol mentions
type Aggregator struct {
	extractor Extractor
}

// NewAggregator creates an aggregator using extractor on each post
func NewAggregator(extractor Extractor) *Aggregator {
	return &Aggregator{extractor: extractor}
}

// Aggregate counts every symbol once per post. The same author mentioning a
// symbol in two posts counts twice but appears once in MentionedBy.
func (a *Aggregator) Aggregate(posts []models.SocialPost) *Mentions {
	mentions := newMentions()

	for _, post := range posts {
		engagement := post.Engagement.Total()

		for _, symbol := range a.extractor.Extract(post.Text) {
			mention := mentions.getOrCreate(symbol)
			mention.MentionCount++
			mention.EngagementScore += engagement
			if !slices.Contains(mention.MentionedBy, post.AuthorHandle) {
				mention.MentionedBy = append(mention.MentionedBy, post.AuthorHandle)
			}
			mention.RecentMentions = append(mention.RecentMentions, post.Timestamp)
		}
	}

	return mentions
}
