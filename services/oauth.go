package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/url"
	"time"

	"early-badge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthService issues and consumes the single-use state tokens that
// carry {email, referral_code} across the provider round trip. States
// are opaque random tokens; the payload lives server-side so the
// redirect cannot be tampered with or replayed.
type OAuthService struct {
	DB *gorm.DB
}

func NewOAuthService(db *gorm.DB) *OAuthService {
	return &OAuthService{DB: db}
}

func randomToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *OAuthService) IssueState(platform, email, referralCode, codeVerifier string) (string, error) {
	record := models.OAuthState{
		ID:           uuid.NewString(),
		State:        randomToken(),
		Platform:     platform,
		Email:        email,
		ReferralCode: referralCode,
		CodeVerifier: codeVerifier,
	}
	if err := s.DB.Create(&record).Error; err != nil {
		return "", err
	}
	return record.State, nil
}

// ConsumeState loads and deletes the state row in one transaction so a
// replayed callback finds nothing.
func (s *OAuthService) ConsumeState(state string) (*models.OAuthState, error) {
	var record models.OAuthState
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("state = ?", state).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStateNotFound
		}
		if err != nil {
			return err
		}
		res := tx.Where("id = ?", record.ID).Delete(&models.OAuthState{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PurgeStaleStates drops abandoned round trips. Called by the cleanup job.
func (s *OAuthService) PurgeStaleStates(maxAge time.Duration) (int64, error) {
	res := s.DB.Where("created_at < ?", time.Now().Add(-maxAge)).Delete(&models.OAuthState{})
	return res.RowsAffected, res.Error
}

// Callback statuses surfaced to the client via redirect query params.
const (
	CallbackSuccess   = "success"
	CallbackDuplicate = "duplicate"
	CallbackNotMember = "not_member"
	CallbackError     = "error"
)

// CallbackResult is the one-shot message handed back to the frontend
// after an OAuth round trip. The client shows it as a notification and
// then re-queries the ledger — the redirect is a hint, not the truth.
type CallbackResult struct {
	Platform string
	Status   string
	Username string
	Message  string
	Invite   string
	Ref      string
}

// RedirectURL renders the result as a frontend redirect.
func (r CallbackResult) RedirectURL(frontendURL string) string {
	q := url.Values{}
	q.Set("platform", r.Platform)
	q.Set("status", r.Status)
	if r.Username != "" {
		q.Set("username", r.Username)
	}
	if r.Message != "" {
		q.Set("message", r.Message)
	}
	if r.Invite != "" {
		q.Set("invite", r.Invite)
	}
	if r.Ref != "" {
		q.Set("ref", r.Ref)
	}
	return frontendURL + "?" + q.Encode()
}
