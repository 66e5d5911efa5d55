package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"early-badge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const testGuildID = "guild-123"

// newDiscordFixture mocks the token, identity, and guild endpoints.
// guildIDs is what the user's guild list reports; memberLookupOK is the
// bot-token fallback's answer.
func newDiscordFixture(t *testing.T, userID string, guildIDs []string, memberLookupOK bool) (*DiscordService, *gorm.DB) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + userID + `","username":"tester","global_name":"Tester"}`))
	})
	mux.HandleFunc("/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := `[`
		for i, id := range guildIDs {
			if i > 0 {
				body += ","
			}
			body += `{"id":"` + id + `"}`
		}
		body += `]`
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/guilds/"+testGuildID+"/members/"+userID, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bot bot-token", r.Header.Get("Authorization"))
		if !memberLookupOK {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"` + userID + `"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	db := newTestDB(t)
	svc := &DiscordService{
		DB:     db,
		States: NewOAuthService(db),
		HTTP:   srv.Client(),
		cfg: &oauth2.Config{
			ClientID:    "client-id",
			RedirectURL: srv.URL + "/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    srv.URL,
		guildID:    testGuildID,
		botToken:   "bot-token",
		inviteLink: "https://discord.gg/example",
	}
	return svc, db
}

func TestDiscordCallbackMember(t *testing.T) {
	svc, db := newDiscordFixture(t, "999", []string{"other", testGuildID}, false)
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackSuccess, result.Status)
	assert.Equal(t, "Tester", result.Username)

	var user models.BadgeUser
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.True(t, user.DiscordJoined)
}

func TestDiscordCallbackNotMember(t *testing.T) {
	svc, db := newDiscordFixture(t, "999", []string{"other"}, false)
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackNotMember, result.Status)
	assert.Equal(t, "https://discord.gg/example", result.Invite)

	// Account is linked so a later retry recognizes it, but the flag
	// stays down until membership is confirmed.
	var user models.BadgeUser
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	require.NotNil(t, user.DiscordID)
	assert.False(t, user.DiscordJoined)
}

func TestDiscordCallbackBotLookupFallback(t *testing.T) {
	// Guild list misses the server, bot member lookup confirms.
	svc, db := newDiscordFixture(t, "999", []string{"other"}, true)
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackSuccess, result.Status)
}

func TestDiscordCallbackDuplicateAccount(t *testing.T) {
	svc, db := newDiscordFixture(t, "999", []string{testGuildID}, false)
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})
	seedUser(t, db, "bob@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	require.Equal(t, CallbackSuccess, result.Status)

	authURL, err = svc.LoginURL("bob@example.com", "")
	require.NoError(t, err)
	result = svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackDuplicate, result.Status)
}

func TestDiscordCallbackUnknownUser(t *testing.T) {
	svc, _ := newDiscordFixture(t, "999", []string{testGuildID}, false)

	authURL, err := svc.LoginURL("ghost@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackError, result.Status)
}
