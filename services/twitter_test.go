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

// newTwitterFixture stands up a mock provider serving the token and
// user-info endpoints.
func newTwitterFixture(t *testing.T, username, userID string) (*TwitterService, *gorm.DB) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"` + userID + `","username":"` + username + `"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	db := newTestDB(t)
	svc := &TwitterService{
		DB:     db,
		States: NewOAuthService(db),
		HTTP:   srv.Client(),
		cfg: &oauth2.Config{
			ClientID:    "client-id",
			RedirectURL: srv.URL + "/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		userInfoURL: srv.URL + "/2/users/me",
	}
	return svc, db
}

func TestTwitterLoginURLCarriesState(t *testing.T) {
	svc, _ := newTwitterFixture(t, "alice_x", "111")

	authURL, err := svc.LoginURL("alice@example.com", "REFCODE1")
	require.NoError(t, err)
	assert.Contains(t, authURL, "state=")
	assert.Contains(t, authURL, "code_challenge=")
	assert.Contains(t, authURL, "code_challenge_method=S256")
}

func TestTwitterCallbackSuccess(t *testing.T) {
	svc, db := newTwitterFixture(t, "alice_x", "111")
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	state := stateParam(t, authURL)

	result := svc.HandleCallback(context.Background(), "auth-code", state)
	assert.Equal(t, CallbackSuccess, result.Status)
	assert.Equal(t, "alice_x", result.Username)

	var user models.BadgeUser
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.True(t, user.TwitterFollowed)
	require.NotNil(t, user.TwitterID)
	assert.Equal(t, "111", *user.TwitterID)
}

func TestTwitterCallbackDuplicateAccount(t *testing.T) {
	svc, db := newTwitterFixture(t, "alice_x", "111")
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})
	seedUser(t, db, "bob@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	result := svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	require.Equal(t, CallbackSuccess, result.Status)

	// Same Twitter account tries to back a second email.
	authURL, err = svc.LoginURL("bob@example.com", "")
	require.NoError(t, err)
	result = svc.HandleCallback(context.Background(), "auth-code", stateParam(t, authURL))
	assert.Equal(t, CallbackDuplicate, result.Status)

	var bob models.BadgeUser
	require.NoError(t, db.Where("email = ?", "bob@example.com").First(&bob).Error)
	assert.False(t, bob.TwitterFollowed)
}

func TestTwitterCallbackUnknownState(t *testing.T) {
	svc, _ := newTwitterFixture(t, "alice_x", "111")

	result := svc.HandleCallback(context.Background(), "auth-code", "bogus-state")
	assert.Equal(t, CallbackError, result.Status)
}

func TestTwitterCallbackStateReplay(t *testing.T) {
	svc, db := newTwitterFixture(t, "alice_x", "111")
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "")
	require.NoError(t, err)
	state := stateParam(t, authURL)

	first := svc.HandleCallback(context.Background(), "auth-code", state)
	require.Equal(t, CallbackSuccess, first.Status)

	replayed := svc.HandleCallback(context.Background(), "auth-code", state)
	assert.Equal(t, CallbackError, replayed.Status)
}

func TestTwitterCallbackCancelled(t *testing.T) {
	svc, db := newTwitterFixture(t, "alice_x", "111")
	seedUser(t, db, "alice@example.com", models.VerificationFlags{Email: true})

	authURL, err := svc.LoginURL("alice@example.com", "REFCODE1")
	require.NoError(t, err)

	// Provider redirected back without a code.
	result := svc.HandleCallback(context.Background(), "", stateParam(t, authURL))
	assert.Equal(t, CallbackError, result.Status)
	assert.Equal(t, "REFCODE1", result.Ref, "ref survives so the client can keep attribution")
}
