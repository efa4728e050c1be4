package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the price source has no usable price for a token
var ErrPriceUnavailable = errors.New("price unavailable")

// TokenInfo is token metadata as reported by the data API
type TokenInfo struct {
	Address       string
	Symbol        string
	Name          string
	Decimals      int
	USDPerToken   decimal.Decimal
	MonPerToken   decimal.Decimal
	ConfidencePct decimal.Decimal
}

// HasPrice reports whether the token carries a positive USD price
func (t *TokenInfo) HasPrice() bool {
	return t != nil && t.USDPerToken.IsPositive()
}

// PriceSource returns the current USD price for a token address
type PriceSource interface {
	GetPrice(ctx context.Context, tokenAddress string) (float64, error)
}

// TokenLookup resolves a symbol (or contract address) to token metadata.
// A nil TokenInfo with a nil error means the token is unknown.
type TokenLookup interface {
	LookupToken(ctx context.Context, symbol string) (*TokenInfo, error)
}
