package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/sources"
)

const appName = "MonadSwap"

// NeynarDispatcher sends mini-app notifications through Neynar, falling back
// to the direct notifications endpoint when the frame notification fails
type NeynarDispatcher struct {
	apiKey  string
	baseURL string
	appURL  string
	client  *resty.Client
}

// Ensure NeynarDispatcher implements Dispatcher
var _ Dispatcher = (*NeynarDispatcher)(nil)

type frameNotificationRequest struct {
	TargetFIDs   []int64           `json:"target_fids"`
	Notification frameNotification `json:"notification"`
}

type frameNotification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	TargetURL string `json:"target_url"`
}

type directNotificationRequest struct {
	RecipientFID int64      `json:"recipient_fid"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	AppContext   appContext `json:"app_context"`
}

type appContext struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NewNeynarDispatcher creates a new Neynar notification dispatcher
func NewNeynarDispatcher(cfg *config.Config) *NeynarDispatcher {
	return &NeynarDispatcher{
		apiKey:  cfg.NeynarAPIKey,
		baseURL: strings.TrimRight(cfg.NeynarBaseURL, "/"),
		appURL:  cfg.AppURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// Notify delivers title and body to userID
func (n *NeynarDispatcher) Notify(ctx context.Context, userID, title, body string) error {
	fid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || fid <= 0 {
		return fmt.Errorf("invalid FID %q", userID)
	}

	frameErr := n.sendFrameNotification(ctx, fid, title, body)
	if frameErr == nil {
		logrus.Debugf("Frame notification sent to FID %d", fid)
		return nil
	}

	logrus.Warnf("Frame notification to FID %d failed, falling back to direct notification: %v", fid, frameErr)

	if err := n.sendDirectNotification(ctx, fid, title, body); err != nil {
		return fmt.Errorf("notification to FID %d failed: frame: %v; direct: %w", fid, frameErr, err)
	}

	logrus.Debugf("Direct notification sent to FID %d", fid)
	return nil
}

func (n *NeynarDispatcher) sendFrameNotification(ctx context.Context, fid int64, title, body string) error {
	return n.post(ctx, "/farcaster/frame/notifications", frameNotificationRequest{
		TargetFIDs: []int64{fid},
		Notification: frameNotification{
			Title:     title,
			Body:      body,
			TargetURL: n.appURL,
		},
	})
}

func (n *NeynarDispatcher) sendDirectNotification(ctx context.Context, fid int64, title, body string) error {
	return n.post(ctx, "/farcaster/notifications", directNotificationRequest{
		RecipientFID: fid,
		Message:      fmt.Sprintf("%s: %s", title, body),
		Type:         "app_notification",
		AppContext: appContext{
			Name: appName,
			URL:  n.appURL,
		},
	})
}

func (n *NeynarDispatcher) post(ctx context.Context, path string, payload interface{}) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", n.apiKey).
		SetBody(payload).
		Post(n.baseURL + path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode(), sources.Truncate(string(resp.Body()), 200))
	}

	return nil
}

// LogDispatcher writes notifications to the log instead of delivering them.
// Used by the operator CLIs.
type LogDispatcher struct{}

// Ensure LogDispatcher implements Dispatcher
var _ Dispatcher = LogDispatcher{}

func (LogDispatcher) Notify(ctx context.Context, userID, title, body string) error {
	logrus.WithField("user_id", userID).Infof("[notification] %s: %s", title, body)
	return nil
}
