package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var addressRe = regexp.MustCompile(`^(?i)0x[0-9a-f]{40}$`)

// MonorailClient talks to the Monorail data API
type MonorailClient struct {
	baseURL string
	client  *resty.Client
}

// Ensure MonorailClient implements PriceSource and TokenLookup
var (
	_ PriceSource = (*MonorailClient)(nil)
	_ TokenLookup = (*MonorailClient)(nil)
)

// apiDecimal accepts numbers, numeric strings, empty strings and null.
// Anything unparseable is treated as absent.
type apiDecimal struct {
	decimal.Decimal
	Valid bool
}

func (d *apiDecimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	d.Decimal, d.Valid = v, true
	return nil
}

type monorailToken struct {
	Address     string     `json:"address"`
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name"`
	Decimals    apiDecimal `json:"decimals"`
	USDPerToken apiDecimal `json:"usd_per_token"`
	MonPerToken apiDecimal `json:"mon_per_token"`
	PConf       apiDecimal `json:"pconf"`
}

type monorailPriceResponse struct {
	Price       apiDecimal `json:"price"`
	USDPerToken apiDecimal `json:"usd_per_token"`
}

// NewMonorailClient creates a new Monorail data API client
func NewMonorailClient(baseURL string) *MonorailClient {
	return &MonorailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// GetPrice returns the current USD price of tokenAddress
func (m *MonorailClient) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/tokens/%s/price", m.baseURL, url.PathEscape(tokenAddress)))
	if err != nil {
		return 0, fmt.Errorf("monorail price request failed: %w", err)
	}

	// Tokens without a dedicated price route still carry usd_per_token in their metadata
	if resp.StatusCode() == 404 {
		token, err := m.getToken(ctx, tokenAddress)
		if err != nil {
			return 0, err
		}
		if !token.HasPrice() {
			return 0, ErrPriceUnavailable
		}
		return token.USDPerToken.InexactFloat64(), nil
	}

	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("monorail price API returned status %d", resp.StatusCode())
	}

	var body monorailPriceResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("failed to parse Monorail price response: %w", err)
	}

	price := body.Price
	if !price.Valid {
		price = body.USDPerToken
	}
	if !price.Valid || !price.IsPositive() {
		return 0, ErrPriceUnavailable
	}

	return price.InexactFloat64(), nil
}

// LookupToken finds token metadata by symbol, or by address when symbol is a contract address
func (m *MonorailClient) LookupToken(ctx context.Context, symbol string) (*TokenInfo, error) {
	if addressRe.MatchString(symbol) {
		token, err := m.getToken(ctx, "0x"+strings.ToLower(symbol[2:]))
		if err != nil {
			return nil, err
		}
		return token, nil
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("find", symbol).
		Get(m.baseURL + "/tokens")
	if err != nil {
		return nil, fmt.Errorf("monorail token search failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("monorail token search returned status %d", resp.StatusCode())
	}

	var tokens []monorailToken
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse Monorail token search: %w", err)
	}

	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t.toInfo(), nil
		}
	}

	logrus.Debugf("Monorail has no token matching %s", symbol)
	return nil, nil
}

// getToken returns nil, nil when the API does not know the address
func (m *MonorailClient) getToken(ctx context.Context, address string) (*TokenInfo, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/token/%s", m.baseURL, url.PathEscape(address)))
	if err != nil {
		return nil, fmt.Errorf("monorail token request failed: %w", err)
	}

	if resp.StatusCode() == 404 {
		return nil, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("monorail token API returned status %d", resp.StatusCode())
	}

	var token monorailToken
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return nil, fmt.Errorf("failed to parse Monorail token: %w", err)
	}
	if token.Address == "" {
		return nil, nil
	}

	return token.toInfo(), nil
}

func (t monorailToken) toInfo() *TokenInfo {
	info := &TokenInfo{
		Address: t.Address,
		Symbol:  t.Symbol,
		Name:    t.Name,
	}
	if t.Decimals.Valid {
		info.Decimals = int(t.Decimals.IntPart())
	}
	if t.USDPerToken.Valid {
		info.USDPerToken = t.USDPerToken.Decimal
	}
	if t.MonPerToken.Valid {
		info.MonPerToken = t.MonPerToken.Decimal
	}
	if t.PConf.Valid {
		info.ConfidencePct = t.PConf.Decimal
	}
	return info
}
