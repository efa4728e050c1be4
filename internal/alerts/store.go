package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/storage"
)

// ErrAlertNotFound is returned when an alert record does not exist or has expired
var ErrAlertNotFound = errors.New("alert not found")

func alertKey(userID, alertID string) string {
	return fmt.Sprintf("user:%s:alerts:%s", userID, alertID)
}

func alertIDsKey(userID string) string {
	return fmt.Sprintf("user:%s:alert_ids", userID)
}

// Store keeps alert records in a KV store alongside a per-user ID set and a
// global set of users with alerts. Records expire after ttl; the indices are
// reconciled by CleanupExpired.
type Store struct {
	kv  storage.KV
	ttl time.Duration
	now func() time.Time
}

// Ensure Store implements AlertStore
var _ AlertStore = (*Store)(nil)

// NewStore creates a new alert store
func NewStore(kv storage.KV, ttl time.Duration) *Store {
	return &Store{
		kv:  kv,
		ttl: ttl,
		now: time.Now,
	}
}

// Create persists a new enabled alert and returns its ID. input is expected to be validated.
func (s *Store) Create(ctx context.Context, input models.AlertInput) (string, error) {
	alert := models.PriceAlert{
		ID:           "alert_" + uuid.NewString(),
		UserID:       input.UserID,
		TokenAddress: input.TokenAddress,
		TokenSymbol:  input.TokenSymbol,
		TargetPrice:  input.TargetPrice,
		Condition:    input.Condition,
		Enabled:      true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.save(ctx, &alert); err != nil {
		return "", err
	}

	if err := s.kv.SAdd(ctx, alertIDsKey(alert.UserID), alert.ID); err != nil {
		return "", fmt.Errorf("failed to index alert %s: %w", alert.ID, err)
	}

	if err := s.kv.SAdd(ctx, storage.UsersWithAlertsKey, alert.UserID); err != nil {
		return "", fmt.Errorf("failed to index user %s: %w", alert.UserID, err)
	}

	logrus.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"user_id":   alert.UserID,
		"symbol":    alert.TokenSymbol,
		"target":    alert.TargetPrice,
		"condition": alert.Condition,
	}).Info("Stored price alert")

	return alert.ID, nil
}

// ListForUser returns the user's alerts, newest first. IDs whose record has
// expired or cannot be decoded are skipped.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	ids, err := s.kv.SMembers(ctx, alertIDsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list alert IDs for user %s: %w", userID, err)
	}

	alerts := make([]models.PriceAlert, 0, len(ids))
	for _, id := range ids {
		alert, err := s.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, ErrAlertNotFound) {
				continue
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logrus.Warnf("Skipping undecodable alert %s for user %s: %v", id, userID, err)
				continue
			}
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// Get loads one alert. It returns ErrAlertNotFound when the record is gone.
func (s *Store) Get(ctx context.Context, userID, alertID string) (*models.PriceAlert, error) {
	data, err := s.kv.Get(ctx, alertKey(userID, alertID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}

	var alert models.PriceAlert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, fmt.Errorf("failed to decode alert %s: %w", alertID, err)
	}

	return &alert, nil
}

// Remove deletes an alert and drops the user from the global index once
// their last alert is gone. It reports whether a record was deleted.
func (s *Store) Remove(ctx context.Context, userID, alertID string) (bool, error) {
	deleted, err := s.kv.Delete(ctx, alertKey(userID, alertID))
	if err != nil {
		return false, fmt.Errorf("failed to delete alert %s: %w", alertID, err)
	}

	if err := s.kv.SRem(ctx, alertIDsKey(userID), alertID); err != nil {
		return deleted, fmt.Errorf("failed to unindex alert %s: %w", alertID, err)
	}

	if err := s.dropUserIfEmpty(ctx, userID); err != nil {
		return deleted, err
	}

	logrus.WithFields(logrus.Fields{
		"alert_id": alertID,
		"user_id":  userID,
		"deleted":  deleted,
	}).Info("Removed price alert")

	return deleted, nil
}

// SetEnabled flips the enabled flag and renews the record's retention window.
// It reports whether the alert existed.
func (s *Store) SetEnabled(ctx context.Context, userID, alertID string, enabled bool) (bool, error) {
	alert, err := s.Get(ctx, userID, alertID)
	if errors.Is(err, ErrAlertNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	alert.Enabled = enabled
	if err := s.save(ctx, alert); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"alert_id": alertID,
		"user_id":  userID,
		"enabled":  enabled,
	}).Info("Toggled price alert")

	return true, nil
}

// MarkTriggered records that alert fired at at. The stored record is reloaded
// first so a concurrent delete is not undone and a concurrent toggle is kept.
func (s *Store) MarkTriggered(ctx context.Context, alert *models.PriceAlert, at time.Time) error {
	stored, err := s.Get(ctx, alert.UserID, alert.ID)
	if err != nil {
		return err
	}

	triggeredAt := at.UTC()
	stored.LastTriggeredAt = &triggeredAt
	if err := s.save(ctx, stored); err != nil {
		return err
	}

	alert.LastTriggeredAt = &triggeredAt
	return nil
}

// UsersWithAlerts returns every user in the global index
func (s *Store) UsersWithAlerts(ctx context.Context) ([]string, error) {
	users, err := s.kv.SMembers(ctx, storage.UsersWithAlertsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with alerts: %w", err)
	}
	return users, nil
}

// CleanupExpired removes index entries whose alert record has expired and
// drops users left without alerts. It returns the number of IDs removed.
// Errors for one user are logged and the sweep continues.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	users, err := s.UsersWithAlerts(ctx)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, userID := range users {
		n, err := s.cleanupUser(ctx, userID)
		cleaned += n
		if err != nil {
			logrus.Errorf("Failed to clean up alerts for user %s: %v", userID, err)
		}
	}

	logrus.Infof("Cleaned up %d expired alerts across %d users", cleaned, len(users))
	return cleaned, nil
}

func (s *Store) cleanupUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.kv.SMembers(ctx, alertIDsKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to list alert IDs: %w", err)
	}

	cleaned := 0
	for _, id := range ids {
		exists, err := s.kv.Exists(ctx, alertKey(userID, id))
		if err != nil {
			return cleaned, fmt.Errorf("failed to check alert %s: %w", id, err)
		}
		if exists {
			continue
		}
		if err := s.kv.SRem(ctx, alertIDsKey(userID), id); err != nil {
			return cleaned, fmt.Errorf("failed to unindex alert %s: %w", id, err)
		}
		cleaned++
	}

	return cleaned, s.dropUserIfEmpty(ctx, userID)
}

func (s *Store) dropUserIfEmpty(ctx context.Context, userID string) error {
	remaining, err := s.kv.SCard(ctx, alertIDsKey(userID))
	if err != nil {
		return fmt.Errorf("failed to count alerts for user %s: %w", userID, err)
	}
	if remaining > 0 {
		return nil
	}
	if err := s.kv.SRem(ctx, storage.UsersWithAlertsKey, userID); err != nil {
		return fmt.Errorf("failed to unindex user %s: %w", userID, err)
	}

	// a Create racing with this removal may have indexed a new alert after the count
	remaining, err = s.kv.SCard(ctx, alertIDsKey(userID))
	if err != nil {
		return fmt.Errorf("failed to recount alerts for user %s: %w", userID, err)
	}
	if remaining > 0 {
		if err := s.kv.SAdd(ctx, storage.UsersWithAlertsKey, userID); err != nil {
			return fmt.Errorf("failed to reindex user %s: %w", userID, err)
		}
	}
	return nil
}

func (s *Store) save(ctx context.Context, alert *models.PriceAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert %s: %w", alert.ID, err)
	}
	if err := s.kv.Set(ctx, alertKey(alert.UserID, alert.ID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to store alert %s: %w", alert.ID, err)
	}
	return nil
}
