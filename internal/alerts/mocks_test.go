package alerts

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPriceSource is a mock implementation of pricing.PriceSource
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	args := m.Called(tokenAddress)
	return args.Get(0).(float64), args.Error(1)
}

// MockDispatcher is a mock implementation of notifications.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Notify(ctx context.Context, userID, title, body string) error {
	args := m.Called(userID, title, body)
	return args.Error(0)
}
