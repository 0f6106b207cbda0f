package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"entry-portal/internal/completion"
	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

// Backend is what the admin commands act on.
type Backend interface {
	GetEntry(ctx context.Context, entryID string) (*models.Entry, error)
	Recompute(ctx context.Context) (completion.Report, error)
}

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram notifies admins and answers their commands:
//
//	/status <entry_id>  per-stage statuses of an entry
//	/recompute          run the completion batch and report
type Telegram struct {
	api     botAPI
	admins  map[int64]bool
	backend Backend
	logger  *zap.Logger
}

func NewTelegram(token string, admins map[int64]bool, backend Backend, logger *zap.Logger) (*Telegram, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b.Debug = false
	return newTelegram(b, admins, backend, logger), nil
}

func newTelegram(api botAPI, admins map[int64]bool, backend Backend, logger *zap.Logger) *Telegram {
	return &Telegram{
		api:     api,
		admins:  admins,
		backend: backend,
		logger:  logger.With(zap.String("component", "telegram")),
	}
}

// Run polls for updates until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil {
				continue
			}
			if err := t.handleMessage(ctx, upd.Message); err != nil {
				t.logger.Warn("handle message", zap.Int64("chat_id", upd.Message.Chat.ID), zap.Error(err))
			}
		}
	}
}

func (t *Telegram) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.api.Send(msg)
	return err
}

// NotifyAdmins sends text to every admin. A failed chat does not stop the
// others; all failures are returned joined.
func (t *Telegram) NotifyAdmins(ctx context.Context, text string) error {
	var errs []error
	for id := range t.admins {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := t.SendText(id, text); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) isAdmin(tgID int64) bool {
	return t.admins[tgID]
}

func (t *Telegram) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	chatID := m.Chat.ID
	if !t.isAdmin(m.From.ID) {
		return t.SendText(chatID, "アクセス権がありません。")
	}

	switch m.Command() {
	case "start", "help":
		return t.SendText(chatID, "/status <entry_id> - ステージ別の登録状況\n/recompute - 登録状況を再計算")
	case "status":
		return t.handleStatus(ctx, chatID, strings.TrimSpace(m.CommandArguments()))
	case "recompute":
		rep, err := t.backend.Recompute(ctx)
		if err != nil {
			t.logger.Error("recompute from telegram", zap.Error(err))
			return t.SendText(chatID, "再計算に失敗しました: "+err.Error())
		}
		return t.SendText(chatID, RecomputeSummary(rep))
	default:
		return t.SendText(chatID, "不明なコマンドです。/help")
	}
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64, entryID string) error {
	if _, err := uuid.Parse(entryID); err != nil {
		return t.SendText(chatID, "使い方: /status <entry_id>")
	}
	e, err := t.backend.GetEntry(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) {
		return t.SendText(chatID, "エントリーが見つかりません")
	}
	if err != nil {
		return err
	}
	return t.SendText(chatID, EntrySummary(e))
}
