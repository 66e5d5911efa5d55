package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"early-badge-system/models"
	"early-badge-system/utils"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// DiscordService runs the Discord OAuth2 verification leg: identity
// plus membership in the community guild.
type DiscordService struct {
	DB     *gorm.DB
	States *OAuthService
	HTTP   *http.Client

	cfg        *oauth2.Config
	apiBase    string
	guildID    string
	botToken   string
	inviteLink string
}

func NewDiscordServiceFromEnv(db *gorm.DB, states *OAuthService) *DiscordService {
	invite := os.Getenv("DISCORD_INVITE_LINK")
	if invite == "" {
		invite = "discord.gg"
	}
	return &DiscordService{
		DB:     db,
		States: states,
		HTTP:   utils.HTTPClient,
		cfg: &oauth2.Config{
			ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
			ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("DISCORD_REDIRECT_URI"),
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://discord.com/api/oauth2/authorize",
				TokenURL:  "https://discord.com/api/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    "https://discord.com/api",
		guildID:    os.Getenv("DISCORD_GUILD_ID"),
		botToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		inviteLink: invite,
	}
}

func (s *DiscordService) LoginURL(email, referralCode string) (string, error) {
	state, err := s.States.IssueState("discord", email, referralCode, "")
	if err != nil {
		return "", err
	}
	return s.cfg.AuthCodeURL(state), nil
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type discordGuild struct {
	ID string `json:"id"`
}

// HandleCallback exchanges the code, confirms guild membership (user
// guild list first, bot-token member lookup as fallback) and updates
// the ledger. Every outcome maps to a client-routable redirect.
func (s *DiscordService) HandleCallback(ctx context.Context, code, state string) CallbackResult {
	stored, err := s.States.ConsumeState(state)
	if err != nil {
		log.Printf("🚫 Discord callback with unknown state: %v", err)
		return CallbackResult{Platform: "discord", Status: CallbackError, Message: "session expired, please retry"}
	}
	result := CallbackResult{Platform: "discord", Ref: stored.ReferralCode}

	if code == "" {
		result.Status = CallbackError
		result.Message = "authorization was cancelled"
		return result
	}
	if stored.Email == "" {
		result.Status = CallbackError
		result.Message = "Please complete email verification first"
		return result
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTP)
	token, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		log.Printf("❌ Discord token exchange failed: %v", err)
		result.Status = CallbackError
		result.Message = "token_exchange_failed"
		return result
	}

	var du discordUser
	if err := s.fetchJSON(ctx, s.apiBase+"/users/@me", "Bearer "+token.AccessToken, &du); err != nil {
		log.Printf("❌ Discord user fetch failed: %v", err)
		result.Status = CallbackError
		result.Message = "user_fetch_failed"
		return result
	}
	displayName := du.GlobalName
	if displayName == "" {
		displayName = du.Username
	}
	result.Username = displayName
	log.Printf("✅ Discord user authenticated: %s (ID: %s)", displayName, du.ID)

	isMember := s.checkMembership(ctx, token.AccessToken, du.ID)

	err = s.linkAccount(stored.Email, du.ID, displayName, isMember)
	if errors.Is(err, ErrDuplicateIdentity) {
		result.Status = CallbackDuplicate
		result.Message = fmt.Sprintf("This Discord account (@%s) is already linked to another email. Each Discord account can only earn one badge.", displayName)
		return result
	}
	if errors.Is(err, ErrUserNotFound) {
		result.Status = CallbackError
		result.Message = "user_not_found"
		return result
	}
	if err != nil {
		log.Printf("❌ Discord link failed for %s: %v", stored.Email, err)
		result.Status = CallbackError
		return result
	}

	if !isMember {
		result.Status = CallbackNotMember
		result.Message = fmt.Sprintf("Please join the Discord server first. Invite link: %s", s.inviteLink)
		result.Invite = s.inviteLink
		return result
	}
	result.Status = CallbackSuccess
	return result
}

func (s *DiscordService) checkMembership(ctx context.Context, accessToken, discordID string) bool {
	var guilds []discordGuild
	if err := s.fetchJSON(ctx, s.apiBase+"/users/@me/guilds", "Bearer "+accessToken, &guilds); err == nil {
		for _, g := range guilds {
			if g.ID == s.guildID {
				return true
			}
		}
	} else {
		log.Printf("⚠️  Discord guild list failed: %v", err)
	}

	// Guild list misses servers past the 200-guild page; the bot-token
	// member lookup is authoritative when available.
	if s.botToken == "" {
		return false
	}
	url := fmt.Sprintf("%s/guilds/%s/members/%s", s.apiBase, s.guildID, discordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *DiscordService) linkAccount(email, discordID, username string, isMember bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var other models.BadgeUser
		err := tx.Where("discord_id = ? AND email <> ?", discordID, email).First(&other).Error
		if err == nil {
			return ErrDuplicateIdentity
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var user models.BadgeUser
		err = tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		user.DiscordID = &discordID
		user.DiscordUsername = username
		user.DiscordJoined = isMember
		return tx.Save(&user).Error
	})
}

func (s *DiscordService) fetchJSON(ctx context.Context, url, authorization string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
