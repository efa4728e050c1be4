package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
)

// Service sends operator reports and alerts via Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = s.dialAndSend
	return s
}

// SendReport sends a report via configured notification channels
func (s *Service) SendReport(report *models.Report) error {
	var errors []string

	// Send to Teams if configured
	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildTeamsMessage(report)); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	// Send via email if configured
	if s.config.NotificationEmail != "" {
		if err := s.sendReportEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendAlert sends an urgent operator alert to Teams, or by email when Teams is not configured
func (s *Service) SendAlert(alert *models.OpsAlert) error {
	if s.config.TeamsWebhookURL != "" {
		color := "FFA500"
		if alert.Severity == models.SeverityCritical {
			color = "D13438"
		}
		return s.postToTeams(&TeamsMessage{
			Type:       "MessageCard",
			Context:    "https://schema.org/extensions",
			ThemeColor: color,
			Title:      fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
			Text:       alert.Message,
		})
	}

	if s.config.NotificationEmail != "" {
		m := s.newMessage(fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title))
		m.SetBody("text/plain", fmt.Sprintf("%s\n\nRaised %s (%s)\n",
			alert.Message, humanize.Time(alert.CreatedAt), alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")))
		return s.send(m)
	}

	logrus.Warnf("Operator alert not delivered, no channel configured: %s - %s", alert.Severity, alert.Title)
	return nil
}

func (s *Service) postToTeams(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func reportFacts(report *models.Report) []TeamsFact {
	t := report.Totals
	return []TeamsFact{
		{Name: "Check Cycles", Value: humanize.Comma(int64(report.Cycles))},
		{Name: "Alerts Checked", Value: humanize.Comma(int64(t.AlertsChecked))},
		{Name: "Alerts Triggered", Value: humanize.Comma(int64(t.Triggered))},
		{Name: "Skipped (cooldown)", Value: humanize.Comma(int64(t.CooldownSkipped))},
		{Name: "Skipped (no price)", Value: humanize.Comma(int64(t.PriceUnavailable))},
		{Name: "Notification Failures", Value: humanize.Comma(int64(t.NotifyFailures))},
		{Name: "Store Errors", Value: humanize.Comma(int64(t.StoreErrors))},
		{Name: "Expired Alerts Cleaned", Value: humanize.Comma(int64(t.ExpiredCleaned))},
		{Name: "Users With Alerts", Value: humanize.Comma(int64(report.UsersWithAlerts))},
		{Name: "Trending Subscribers", Value: humanize.Comma(int64(report.TrendingSubscribers))},
		{Name: "Trending Digests Sent", Value: humanize.Comma(int64(report.DigestsSent))},
	}
}

func lastCycleText(report *models.Report) string {
	if report.LastCycle == nil {
		return "No check cycle has run yet"
	}
	c := report.LastCycle
	return fmt.Sprintf("Last cycle %s: %d users, %d alerts checked, %d triggered, took %s",
		humanize.RelTime(c.StartedAt, report.GeneratedAt, "ago", "from now"),
		c.UsersChecked, c.AlertsChecked, c.Triggered, c.Duration.Round(time.Millisecond))
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("MonadSwap Signals Report - %s", report.Period),
		Text: fmt.Sprintf("%s price alerts triggered (%s report)",
			humanize.Comma(int64(report.Totals.Triggered)), report.Period),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle:    "Summary",
		ActivitySubtitle: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"),
		Facts:            reportFacts(report),
		Markdown:         true,
	})

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Latest Cycle",
		ActivityText:  lastCycleText(report),
		Markdown:      true,
	})

	return message
}

func (s *Service) newMessage(subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	return m
}

func (s *Service) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) sendReportEmail(report *models.Report) error {
	subject := fmt.Sprintf("MonadSwap Signals Report - %s (%d alerts triggered)",
		report.Period, report.Totals.Triggered)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := s.newMessage(subject)
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	return s.send(m)
}

const reportEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>MonadSwap Signals Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #6e54ff; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        td { padding: 4px 12px 4px 0; }
    </style>
</head>
<body>
    <div class="header">
        <h1>MonadSwap Signals Report</h1>
        <p>{{.Report.Period}} report generated on {{.Report.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <table>
        {{range .Facts}}
            <tr><td><strong>{{.Name}}</strong></td><td>{{.Value}}</td></tr>
        {{end}}
        </table>
    </div>

    <p>{{.LastCycle}}</p>

    <hr>
    <p><small>This report was generated automatically by the MonadSwap Signals Bot.</small></p>
</body>
</html>
`

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	t, err := template.New("email").Parse(reportEmailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, struct {
		Report    *models.Report
		Facts     []TeamsFact
		LastCycle string
	}{
		Report:    report,
		Facts:     reportFacts(report),
		LastCycle: lastCycleText(report),
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("MonadSwap Signals Report - %s\n", report.Period))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	for _, fact := range reportFacts(report) {
		text.WriteString(fmt.Sprintf("%s: %s\n", fact.Name, fact.Value))
	}

	text.WriteString("\n")
	text.WriteString(lastCycleText(report))
	text.WriteString("\n\n---\nThis report was generated automatically by the MonadSwap Signals Bot.\n")

	return text.String()
}
