// Package notify delivers operator messages: recompute summaries to the
// admins' Telegram chats, and a small admin command bot.
package notify

import (
	"context"
	"fmt"
	"strings"

	"entry-portal/internal/completion"
	"entry-portal/internal/models"
)

// Notifier sends a plain text message to every configured admin.
type Notifier interface {
	NotifyAdmins(ctx context.Context, text string) error
}

// Nop drops every message. Used when no bot token is configured.
type Nop struct{}

func (Nop) NotifyAdmins(context.Context, string) error { return nil }

// RecomputeSummary renders a batch report for admins.
func RecomputeSummary(rep completion.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "登録状況の再計算が完了しました\n処理: %d件 / 更新: %d件 / エラー: %d件",
		rep.Processed, rep.Updated, len(rep.Errors))
	for _, id := range rep.Errors {
		b.WriteString("\n- " + id)
	}
	return b.String()
}

// EntrySummary renders the per-stage statuses of an entry.
func EntrySummary(e *models.Entry) string {
	var b strings.Builder
	b.WriteString("エントリー " + e.ID)
	if e.TeamName != "" {
		b.WriteString(" (" + e.TeamName + ")")
	}
	for _, st := range models.Stages() {
		fmt.Fprintf(&b, "\n%s: %s", st, e.StatusOf(st).Label())
	}
	return b.String()
}
