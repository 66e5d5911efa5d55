// workers/bot_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"early-badge-system/services"
	"early-badge-system/utils"
)

// BotWorker long-polls the Telegram Bot API, handles /start deep links
// from the website, and completes the Telegram verification when it
// sees the user inside the community channel. Non-members are parked in
// a pending set and re-checked until they join or the hour runs out.
type BotWorker struct {
	Telegram   *services.TelegramService
	HTTPClient *http.Client

	apiBase     string
	channelID   string
	frontendURL string
	channelLink string

	offset  int64
	pending map[int64]pendingVerification
}

type pendingVerification struct {
	Email        string
	Username     string
	ReferralCode string
	StartedAt    time.Time
}

const (
	pendingMaxAge        = time.Hour
	pendingCheckInterval = 15 * time.Second
	longPollTimeout      = 25 // seconds, Telegram-side
)

func NewBotWorkerFromEnv(telegram *services.TelegramService) *BotWorker {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is required for the bot worker")
	}
	channelID := os.Getenv("TELEGRAM_CHANNEL_ID")
	if channelID == "" {
		log.Fatal("TELEGRAM_CHANNEL_ID environment variable is required for the bot worker")
	}
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	return &BotWorker{
		Telegram:    telegram,
		HTTPClient:  utils.HTTPClient,
		apiBase:     "https://api.telegram.org/bot" + token,
		channelID:   channelID,
		frontendURL: frontendURL,
		channelLink: os.Getenv("TELEGRAM_CHANNEL_LINK"),
		pending:     make(map[int64]pendingVerification),
	}
}

// Start runs until the context is cancelled.
func (w *BotWorker) Start(ctx context.Context) {
	log.Printf("🤖 Telegram bot worker started (channel %s)", w.channelID)

	recheck := time.NewTicker(pendingCheckInterval)
	defer recheck.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🤖 Telegram bot worker stopping")
			return
		case <-recheck.C:
			w.recheckPending(ctx)
		default:
		}

		updates, err := w.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("⚠️  getUpdates failed: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}
		for _, u := range updates {
			w.offset = u.UpdateID + 1
			w.handleUpdate(ctx, u)
		}
	}
}

type tgUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type tgUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		From tgUser `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
	ChatMember *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		OldChatMember struct {
			Status string `json:"status"`
		} `json:"old_chat_member"`
		NewChatMember struct {
			Status string `json:"status"`
			User   tgUser `json:"user"`
		} `json:"new_chat_member"`
	} `json:"chat_member"`
}

func (w *BotWorker) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"offset":          w.offset,
		"timeout":         longPollTimeout,
		"allowed_updates": []string{"message", "chat_member"},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/getUpdates", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		OK     bool       `json:"ok"`
		Result []tgUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.OK {
		return nil, fmt.Errorf("telegram getUpdates returned not ok")
	}
	return payload.Result, nil
}

func (w *BotWorker) handleUpdate(ctx context.Context, u tgUpdate) {
	if u.Message != nil && strings.HasPrefix(u.Message.Text, "/start") {
		w.handleStart(ctx, u)
		return
	}
	if u.ChatMember != nil {
		w.handleChannelMemberUpdate(ctx, u)
	}
}

func (w *BotWorker) handleStart(ctx context.Context, u tgUpdate) {
	user := u.Message.From
	chatID := u.Message.Chat.ID

	arg := strings.TrimSpace(strings.TrimPrefix(u.Message.Text, "/start"))
	if !strings.HasPrefix(arg, "verify_") {
		w.sendMessage(ctx, chatID,
			"👋 Welcome to the Early Badge Bot!\n\nPlease start the verification process from our website.",
			"🌐 Go to Website", w.frontendURL)
		return
	}

	email, referralCode, err := services.DecodeDeepLinkPayload(strings.TrimPrefix(arg, "verify_"))
	if err != nil || email == "" {
		log.Printf("⚠️  Bad /start payload from %d: %v", user.ID, err)
		w.sendMessage(ctx, chatID,
			"👋 That link didn't work. Please restart the verification from our website.",
			"🌐 Go to Website", w.frontendURL)
		return
	}

	if w.isChannelMember(ctx, user.ID) {
		w.complete(ctx, user, chatID, email, referralCode)
		return
	}

	w.pending[user.ID] = pendingVerification{
		Email:        email,
		Username:     user.Username,
		ReferralCode: referralCode,
		StartedAt:    time.Now(),
	}
	w.sendMessage(ctx, chatID,
		"👋 Welcome to Early Badge verification!\n\n1️⃣ Join our channel with the button below\n2️⃣ I'll detect when you join and confirm automatically",
		"📢 Join Channel", w.channelLink)
}

func (w *BotWorker) handleChannelMemberUpdate(ctx context.Context, u tgUpdate) {
	cm := u.ChatMember
	if strconv.FormatInt(cm.Chat.ID, 10) != w.channelID {
		return
	}
	user := cm.NewChatMember.User
	p, ok := w.pending[user.ID]
	if !ok {
		return
	}

	joined := (cm.OldChatMember.Status == "left" || cm.OldChatMember.Status == "kicked") &&
		memberStatus(cm.NewChatMember.Status)
	if !joined {
		return
	}

	log.Printf("🎉 Pending user %d joined the channel", user.ID)
	w.complete(ctx, user, user.ID, p.Email, p.ReferralCode)
}

func (w *BotWorker) recheckPending(ctx context.Context) {
	now := time.Now()
	for userID, p := range w.pending {
		if now.Sub(p.StartedAt) > pendingMaxAge {
			delete(w.pending, userID)
			continue
		}
		if w.isChannelMember(ctx, userID) {
			w.complete(ctx, tgUser{ID: userID, Username: p.Username}, userID, p.Email, p.ReferralCode)
		}
	}
}

func (w *BotWorker) complete(ctx context.Context, user tgUser, chatID int64, email, referralCode string) {
	err := w.Telegram.LinkWithChannelCheck(email, strconv.FormatInt(user.ID, 10), user.Username, true, referralCode)
	if err != nil {
		log.Printf("❌ Failed to complete telegram verification for %s: %v", email, err)
		// Permanent failures can never succeed on retry; unpark the user
		// so the recheck loop doesn't DM the same error every interval.
		// Transient failures stay parked for the next recheck.
		switch {
		case errors.Is(err, services.ErrDuplicateIdentity):
			delete(w.pending, user.ID)
			w.sendMessage(ctx, chatID,
				"❌ This Telegram account is already linked to another email.\nPlease use a different account or return to the website.",
				"🌐 Go to Website", w.frontendURL)
		case errors.Is(err, services.ErrUserNotFound):
			delete(w.pending, user.ID)
			w.sendMessage(ctx, chatID,
				"❌ We couldn't find your registration.\nPlease start the verification from our website.",
				"🌐 Go to Website", w.frontendURL)
		}
		return
	}
	delete(w.pending, user.ID)

	returnURL := w.frontendURL
	if referralCode != "" {
		returnURL += "?ref=" + referralCode
	}
	w.sendMessage(ctx, chatID,
		"✅ Your Telegram verification is complete!\n\nClick below to continue:",
		"🎯 Continue to Next Step", returnURL)
}

func memberStatus(status string) bool {
	return status == "member" || status == "administrator" || status == "creator"
}

func (w *BotWorker) isChannelMember(ctx context.Context, userID int64) bool {
	body, _ := json.Marshal(map[string]interface{}{
		"chat_id": w.channelID,
		"user_id": userID,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/getChatMember", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	return payload.OK && memberStatus(payload.Result.Status)
}

func (w *BotWorker) sendMessage(ctx context.Context, chatID int64, text, buttonText, buttonURL string) {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if buttonText != "" && buttonURL != "" {
		payload["reply_markup"] = map[string]interface{}{
			"inline_keyboard": [][]map[string]string{
				{{"text": buttonText, "url": buttonURL}},
			},
		}
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		log.Printf("⚠️  sendMessage failed: %v", err)
		return
	}
	resp.Body.Close()
}
