package balances

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/monadswap/signals-bot/internal/config"
)

const (
	nativeSymbol   = "MON"
	nativeDecimals = 18
	zeroBalance    = "0.00"
)

const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ErrInvalidAddress is returned for wallet addresses that are not 20-byte hex
var ErrInvalidAddress = errors.New("invalid wallet address")

// ChainReader is the subset of the JSON-RPC client used for balance reads
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Service reads native and ERC-20 token balances from a Monad RPC endpoint
type Service struct {
	chain   ChainReader
	tokens  []config.Token
	chainID int64
	erc20   abi.ABI
}

// Dial connects to the configured RPC endpoint
func Dial(ctx context.Context, cfg *config.Config) (*Service, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.MonadRPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Monad RPC: %w", err)
	}
	return NewService(client, cfg), client, nil
}

// NewService creates a balance service over chain
func NewService(chain ChainReader, cfg *config.Config) *Service {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC-20 ABI: %v", err))
	}

	return &Service{
		chain:   chain,
		tokens:  cfg.Tokens,
		chainID: cfg.MonadChainID,
		erc20:   parsed,
	}
}

// GetAllBalances returns the MON balance and every configured token balance
// of wallet, keyed by symbol. Individual failures degrade to "0.00".
func (s *Service) GetAllBalances(ctx context.Context, wallet string) (map[string]string, error) {
	if !common.IsHexAddress(wallet) {
		return nil, ErrInvalidAddress
	}
	owner := common.HexToAddress(wallet)

	var mu sync.Mutex
	balances := make(map[string]string, len(s.tokens)+1)
	set := func(symbol, amount string) {
		mu.Lock()
		balances[symbol] = amount
		mu.Unlock()
	}

	var g errgroup.Group

	g.Go(func() error {
		set(nativeSymbol, s.nativeBalance(ctx, owner))
		return nil
	})

	for _, token := range s.tokens {
		g.Go(func() error {
			set(token.Symbol, s.tokenBalance(ctx, token, owner))
			return nil
		})
	}

	_ = g.Wait()
	return balances, nil
}

func (s *Service) nativeBalance(ctx context.Context, owner common.Address) string {
	balance, err := s.chain.BalanceAt(ctx, owner, nil)
	if err != nil {
		logrus.Warnf("Failed to fetch MON balance for %s: %v", owner.Hex(), err)
		return zeroBalance
	}
	return formatUnits(balance, nativeDecimals)
}

func (s *Service) tokenBalance(ctx context.Context, token config.Token, owner common.Address) string {
	data, err := s.erc20.Pack("balanceOf", owner)
	if err != nil {
		logrus.Errorf("Failed to encode balanceOf call: %v", err)
		return zeroBalance
	}

	contract := common.HexToAddress(token.Address)
	out, err := s.chain.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		logrus.Warnf("Failed to fetch %s balance for %s: %v", token.Symbol, owner.Hex(), err)
		return zeroBalance
	}

	values, err := s.erc20.Unpack("balanceOf", out)
	if err != nil || len(values) != 1 {
		logrus.Warnf("Failed to decode %s balance for %s: %v", token.Symbol, owner.Hex(), err)
		return zeroBalance
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		logrus.Warnf("Unexpected %s balance type %T", token.Symbol, values[0])
		return zeroBalance
	}

	return formatUnits(balance, token.Decimals)
}

// VerifyNetwork reports whether the RPC endpoint serves the expected chain
func (s *Service) VerifyNetwork(ctx context.Context) (bool, error) {
	id, err := s.chain.ChainID(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch chain ID: %w", err)
	}

	logrus.Infof("Connected to chain %s (expected %d)", id.String(), s.chainID)
	return id.Cmp(big.NewInt(s.chainID)) == 0, nil
}

func formatUnits(amount *big.Int, decimals int) string {
	return decimal.NewFromBigInt(amount, int32(-decimals)).String()
}
