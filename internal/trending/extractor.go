package trending

import (
	"regexp"
	"strings"
)

var (
	dollarTickerRe    = regexp.MustCompile(`\$([A-Z]{2,10})\b`)
	contractAddressRe = regexp.MustCompile(`0x[a-fA-F0-9]{40}\b`)
)

// RegexExtractor matches $TICKER forms, an allow-list of bare tickers and
// contract addresses. It is a heuristic: allow-listed words used in plain
// English are reported too.
type RegexExtractor struct {
	patterns []*regexp.Regexp
}

// Ensure RegexExtractor implements Extractor
var _ Extractor = (*RegexExtractor)(nil)

// NewRegexExtractor creates an extractor recognising knownTickers as bare words
func NewRegexExtractor(knownTickers []string) *RegexExtractor {
	patterns := []*regexp.Regexp{dollarTickerRe}

	var quoted []string
	for _, ticker := range knownTickers {
		if ticker = strings.TrimSpace(ticker); ticker != "" {
			quoted = append(quoted, regexp.QuoteMeta(ticker))
		}
	}
	if len(quoted) > 0 {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b(`+strings.Join(quoted, "|")+`)\b`))
	}

	patterns = append(patterns, contractAddressRe)

	return &RegexExtractor{patterns: patterns}
}

// Extract returns the distinct uppercased symbols in text, in the order they were found
func (e *RegexExtractor) Extract(text string) []string {
	var symbols []string
	seen := make(map[string]struct{})

	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(text, -1) {
			symbol := strings.ToUpper(strings.TrimPrefix(match, "$"))
			if len(symbol) < 2 {
				continue
			}
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
		}
	}

	return symbols
}
