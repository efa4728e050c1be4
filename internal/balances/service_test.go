package balances

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadswap/signals-bot/internal/config"
)

const wallet = "0x1111111111111111111111111111111111111111"

type fakeChain struct {
	native    *big.Int
	tokens    map[common.Address]*big.Int
	failing   map[common.Address]bool
	nativeErr error
	chainID   *big.Int
}

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if f.nativeErr != nil {
		return nil, f.nativeErr
	}
	return f.native, nil
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, err
	}

	method := parsed.Methods["balanceOf"]
	if len(msg.Data) < 4 || string(msg.Data[:4]) != string(method.ID) {
		return nil, errors.New("unexpected selector")
	}

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	if args[0].(common.Address) != common.HexToAddress(wallet) {
		return nil, errors.New("unexpected owner")
	}

	if f.failing[*msg.To] {
		return nil, errors.New("execution reverted")
	}

	balance, ok := f.tokens[*msg.To]
	if !ok {
		return []byte{}, nil
	}
	return method.Outputs.Pack(balance)
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MonadChainID: 10143,
		Tokens: []config.Token{
			{Symbol: "USDC", Address: "0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", Decimals: 6},
			{Symbol: "USDT", Address: "0x88b8E2161DEDC77EF4ab7585569D2415a1C1055D", Decimals: 6},
			{Symbol: "DAK", Address: "0x0F0BDEbF0F83cD1EE3974779Bcb7315f9808c714", Decimals: 18},
			{Symbol: "CHOG", Address: "0xE0590015A873bF326bd645c3E1266d4db41C4E6B", Decimals: 18},
		},
	}
}

func TestService_GetAllBalances(t *testing.T) {
	cfg := testConfig()
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)

	chain := &fakeChain{
		native: oneAndHalf,
		tokens: map[common.Address]*big.Int{
			common.HexToAddress(cfg.Tokens[0].Address): big.NewInt(12345678),
			common.HexToAddress(cfg.Tokens[1].Address): big.NewInt(0),
		},
		failing: map[common.Address]bool{
			common.HexToAddress(cfg.Tokens[2].Address): true,
		},
	}

	service := NewService(chain, cfg)
	balances, err := service.GetAllBalances(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"MON":  "1.5",
		"USDC": "12.345678",
		"USDT": "0",
		"DAK":  "0.00", // call reverted
		"CHOG": "0.00", // empty return data
	}, balances)
}

func TestService_GetAllBalancesNativeFailure(t *testing.T) {
	chain := &fakeChain{nativeErr: errors.New("rpc down")}
	service := NewService(chain, &config.Config{})

	balances, err := service.GetAllBalances(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MON": "0.00"}, balances)
}

func TestService_GetAllBalancesInvalidAddress(t *testing.T) {
	service := NewService(&fakeChain{}, testConfig())

	for _, address := range []string{"", "0x123", "not-an-address"} {
		_, err := service.GetAllBalances(context.Background(), address)
		assert.ErrorIs(t, err, ErrInvalidAddress, address)
	}
}

func TestService_VerifyNetwork(t *testing.T) {
	tests := []struct {
		name     string
		chainID  int64
		expected bool
	}{
		{name: "Monad testnet", chainID: 10143, expected: true},
		{name: "Other chain", chainID: 1, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(&fakeChain{chainID: big.NewInt(tt.chainID)}, testConfig())
			ok, err := service.VerifyNetwork(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", formatUnits(big.NewInt(0), 18))
	assert.Equal(t, "0.000001", formatUnits(big.NewInt(1), 6))
	assert.Equal(t, "42", formatUnits(big.NewInt(42000000), 6))
}
