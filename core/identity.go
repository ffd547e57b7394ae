package core

import "time"

// Identity is a user's authenticated profile. It is linkable to email
// credentials and/or a wallet address.
type Identity struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	Password        string    `json:"-"`
	WalletAddress   string    `json:"wallet_address,omitempty"`
	ProfileImageRef string    `json:"profile_image_ref,omitempty"`
	EmailVerified   bool      `json:"email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the creation invariant: at least one of email or wallet.
func (i *Identity) Validate() error {
	if i.Email == "" && i.WalletAddress == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// ProfileUpdate holds the fields a user may change. Nil fields are left untouched.
type ProfileUpdate struct {
	Username        *string `json:"username,omitempty"`
	Email           *string `json:"email,omitempty"`
	ProfileImageRef *string `json:"profile_image_ref,omitempty"`
	EmailVerified   *bool   `json:"email_verified,omitempty"`
}

// Apply merges the update into a copy of id. The ID is never changed.
func (u ProfileUpdate) Apply(id Identity) Identity {
	if u.Username != nil {
		id.Username = *u.Username
	}
	if u.Email != nil {
		id.Email = *u.Email
	}
	if u.ProfileImageRef != nil {
		id.ProfileImageRef = *u.ProfileImageRef
	}
	if u.EmailVerified != nil {
		id.EmailVerified = *u.EmailVerified
	}
	return id
}

// SessionState is the observable state of the client session.
type SessionState struct {
	User      *Identity `json:"user"`
	Loading   bool      `json:"loading"`
	LastError string    `json:"last_error,omitempty"`
}

// Authenticated reports whether a user is current.
func (s SessionState) Authenticated() bool {
	return s.User != nil
}
