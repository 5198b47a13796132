package models

import "time"

// KYCStatus is the backend's identity-verification state for a user.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// SubscriptionTier is the user's product plan.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPro     SubscriptionTier = "pro"
	TierPremium SubscriptionTier = "premium"
)

// UserProfile is the signed-in user's profile as returned by the backend.
// Held in memory only; it is re-fetched after a restart.
type UserProfile struct {
	Email            string           `json:"email"`
	Name             string           `json:"name,omitempty"`
	Phone            string           `json:"phone,omitempty"`
	KYCStatus        KYCStatus        `json:"kyc_status,omitempty"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier,omitempty"`
}

// Session is the current access/refresh token pair.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session has a known expiry at or before now.
// Sessions without an expiry never report expired; the backend decides via 401.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

// Clone returns a copy that shares no pointers with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// LoginResult is the token payload of a successful login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"` // seconds
}
