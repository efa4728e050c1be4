package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
)

type noopRunner struct{}

func (noopRunner) RunPriceMonitoring(ctx context.Context) (*models.CycleReport, error) {
	return &models.CycleReport{}, nil
}

func (noopRunner) RunTrendingDigest(ctx context.Context) (int, error) { return 0, nil }

func (noopRunner) RunDailySummary(ctx context.Context) (*models.Report, error) {
	return &models.Report{}, nil
}

func TestService_Start(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		entries int
		wantErr bool
	}{
		{
			name: "All jobs scheduled",
			cfg: &config.Config{
				AlertCheckSchedule:     "0 * * * * *",
				TrendingDigestSchedule: "0 0 */6 * * *",
				SummarySchedule:        "0 0 9 * * *",
			},
			entries: 3,
		},
		{
			name: "Empty schedule disables job",
			cfg: &config.Config{
				AlertCheckSchedule: "0 * * * * *",
			},
			entries: 1,
		},
		{
			name: "Five field expression rejected",
			cfg: &config.Config{
				AlertCheckSchedule: "* * * * *",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(tt.cfg, noopRunner{})
			err := service.Start()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer service.Stop()

			assert.Equal(t, tt.entries, service.Entries())
		})
	}
}
