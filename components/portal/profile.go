package portal

import (
	"context"
	"encoding/json"
	"sync"
)

// Profile is the signed-in customer's display profile.
type Profile struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	DOB           string `json:"dob"`
	AccountNumber string `json:"accountNumber"`
	LastLogin     string `json:"lastLogin"`
	ProfileImage  string `json:"profileImage"`
}

// DefaultProfile is shown when no profile has been stored.
func DefaultProfile() Profile {
	return Profile{
		Name:          "John Doe",
		Phone:         "+1 555-123-4567",
		Email:         "johndoe@example.com",
		Address:       "456 Elm Street, Los Angeles, CA",
		DOB:           "April 20, 1985",
		AccountNumber: "1234 5678 9012 3456",
		LastLogin:     "10 Feb 2025 12:30 PM",
		ProfileImage:  "https://via.placeholder.com/150",
	}
}

// ProfileProvider holds the current profile for one client. It never syncs
// with the API and never writes the default profile back to storage.
type ProfileProvider struct {
	mu      sync.RWMutex
	profile Profile
	stored  bool
}

// NewProfileProvider loads the stored profile, falling back to DefaultProfile
// when the key is absent or unreadable.
func NewProfileProvider(ctx context.Context, store Storage) *ProfileProvider {
	p := &ProfileProvider{profile: DefaultProfile()}
	if store == nil {
		return p
	}
	raw, ok, err := store.Get(ctx, StorageKeyProfile)
	if err != nil || !ok {
		return p
	}
	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return p
	}
	p.profile = profile
	p.stored = true
	return p
}

// Current returns the profile in effect.
func (p *ProfileProvider) Current() Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile
}

// Stored reports whether the profile came from storage.
func (p *ProfileProvider) Stored() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stored
}

// Set replaces the in-memory profile. Storage is left untouched.
func (p *ProfileProvider) Set(profile Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = profile
}
