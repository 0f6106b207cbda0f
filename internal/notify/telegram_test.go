package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"entry-portal/internal/completion"
	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	sent    []sent
	failFor map[int64]bool
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("blocked by user")
	}
	f.sent = append(f.sent, sent{msg.ChatID, msg.Text})
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }
func (f *fakeAPI) StopReceivingUpdates()                                         { f.stopped = true }

type fakeBackend struct {
	entry      *models.Entry
	report     completion.Report
	recomputed int
}

func (b *fakeBackend) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	if b.entry == nil || b.entry.ID != id {
		return nil, store.ErrNotFound
	}
	return b.entry, nil
}

func (b *fakeBackend) Recompute(context.Context) (completion.Report, error) {
	b.recomputed++
	return b.report, nil
}

const (
	adminID = int64(100)
	entryID = "5b0a4c1e-8d2f-4f6a-9e1b-2c3d4e5f6a7b"
)

func command(from int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func newTestBot(backend Backend) (*Telegram, *fakeAPI) {
	api := &fakeAPI{failFor: map[int64]bool{}, updates: make(chan tgbotapi.Update)}
	return newTelegram(api, map[int64]bool{adminID: true, 200: true}, backend, zap.NewNop()), api
}

func TestTelegram_NotifyAdminsContinuesPastFailure(t *testing.T) {
	bot, api := newTestBot(&fakeBackend{})
	api.failFor[200] = true

	err := bot.NotifyAdmins(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin 200")
	assert.Equal(t, []sent{{adminID, "hello"}}, api.sent)
}

func TestTelegram_StatusCommand(t *testing.T) {
	backend := &fakeBackend{entry: &models.Entry{ID: entryID, TeamName: "Team A", Statuses: map[models.Stage]models.Status{
		models.StageBasic: models.StatusRegistered,
	}}}
	bot, api := newTestBot(backend)
	ctx := context.Background()

	require.NoError(t, bot.handleMessage(ctx, command(adminID, "/status "+entryID)))
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].text, "Team A")
	assert.Contains(t, api.sent[0].text, "basic_info: 登録済み")
	assert.Contains(t, api.sent[0].text, "finals_info: 未登録")

	require.NoError(t, bot.handleMessage(ctx, command(adminID, "/status not-a-uuid")))
	assert.Contains(t, api.sent[1].text, "使い方")

	require.NoError(t, bot.handleMessage(ctx, command(adminID, "/status 00000000-0000-0000-0000-000000000000")))
	assert.Contains(t, api.sent[2].text, "見つかりません")
}

func TestTelegram_RecomputeCommand(t *testing.T) {
	backend := &fakeBackend{report: completion.Report{Processed: 3, Updated: 1, Errors: []string{entryID}}}
	bot, api := newTestBot(backend)

	require.NoError(t, bot.handleMessage(context.Background(), command(adminID, "/recompute")))
	assert.Equal(t, 1, backend.recomputed)
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].text, "処理: 3件 / 更新: 1件 / エラー: 1件")
	assert.Contains(t, api.sent[0].text, entryID)
}

func TestTelegram_NonAdminIsRefused(t *testing.T) {
	backend := &fakeBackend{}
	bot, api := newTestBot(backend)

	require.NoError(t, bot.handleMessage(context.Background(), command(999, "/recompute")))
	assert.Zero(t, backend.recomputed)
	assert.Equal(t, []sent{{999, "アクセス権がありません。"}}, api.sent)
}

func TestTelegram_RunStopsOnCancel(t *testing.T) {
	backend := &fakeBackend{}
	bot, api := newTestBot(backend)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- bot.Run(ctx) }()
	api.updates <- tgbotapi.Update{Message: command(adminID, "/help")}
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, api.stopped)
	require.Len(t, api.sent, 1)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.NotifyAdmins(context.Background(), "x"))
}

func TestRecomputeSummaryWithoutErrors(t *testing.T) {
	got := RecomputeSummary(completion.Report{Processed: 2, Errors: []string{}})
	assert.Equal(t, "登録状況の再計算が完了しました\n処理: 2件 / 更新: 0件 / エラー: 0件", got)
}
