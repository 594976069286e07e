// Package notify delivers run summaries to a Telegram chat. Notification
// failures are logged and swallowed: a lost message never fails a run.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"homescout/pkg/config"
	"homescout/pkg/model"
	"homescout/pkg/request"
)

// Notifier sends run results somewhere a human will see them.
type Notifier interface {
	ExplorationResult(ctx context.Context, result *model.ExplorationResult)
	Progress(ctx context.Context, counts map[model.Status]int)
}

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	request *request.Client
	cfg     config.NotifyConfig
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(r *request.Client, cfg config.NotifyConfig) *Telegram {
	return &Telegram{request: r, cfg: cfg}
}

// Enabled reports whether the notifier is configured to send anything.
func (t *Telegram) Enabled() bool {
	return t.cfg.Token != "" && t.cfg.ChatID != ""
}

// ExplorationResult sends a summary of one finished run.
func (t *Telegram) ExplorationResult(ctx context.Context, result *model.ExplorationResult) {
	if result.Failed() {
		t.send(ctx, fmt.Sprintf("⚠️ *%s* exploration failed\n`%s`\nWill retry on the next run.",
			escapeMarkdown(result.AreaName), result.ErrorDetail))
		return
	}
	if result.Score == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏡 *%s* — scored *%.1f/100* (%s)\n\n",
		escapeMarkdown(result.AreaName), result.Score.Total, verdict(result.Score.Total))
	fmt.Fprintf(&b, "Safety: %s\n", result.Score.Safety)

	dimensions := make([]string, 0, len(result.Score.Breakdown))
	for dimension := range result.Score.Breakdown {
		dimensions = append(dimensions, dimension)
	}
	sort.Strings(dimensions)
	for _, dimension := range dimensions {
		fmt.Fprintf(&b, "  • %s: %.0f\n", dimension, result.Score.Breakdown[dimension])
	}
	t.send(ctx, b.String())
}

// Progress sends a one-line status-count digest, used by scheduled runs.
func (t *Telegram) Progress(ctx context.Context, counts map[model.Status]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return
	}
	t.send(ctx, fmt.Sprintf("📊 Exploration progress: %d/%d areas complete, %d failed, %d waiting.",
		counts[model.StatusComplete], total, counts[model.StatusFailed], counts[model.StatusPending]))
}

func (t *Telegram) send(ctx context.Context, text string) {
	if !t.Enabled() {
		slog.Debug("Telegram notifier not configured, skipping message")
		return
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.TelegramURL, "/"), t.cfg.Token)
	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	if _, err := t.request.PostForm(ctx, endpoint, form, ""); err != nil {
		slog.Warn("Telegram notification failed", "error", err)
	}
}

func verdict(score float64) string {
	switch {
	case score >= 80:
		return "strong candidate"
	case score >= 60:
		return "worth a visit"
	case score >= 40:
		return "borderline"
	default:
		return "probably not"
	}
}

// escapeMarkdown guards the handful of characters Telegram's legacy
// Markdown mode treats as formatting.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

// Null is a Notifier that drops everything, used for --no-notify runs.
type Null struct{}

func (Null) ExplorationResult(context.Context, *model.ExplorationResult) {}
func (Null) Progress(context.Context, map[model.Status]int)              {}
