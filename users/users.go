package users

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the clinic role a user acts under. It decides which dashboard
// the application shell routes to.
type RoleType string

const (
	RolePatient RoleType = "patient"
	RoleDoctor  RoleType = "doctor"
	RoleAdmin   RoleType = "admin"
)

func (r RoleType) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Profile is the identity snapshot returned by GET /auth/me. A new Profile
// replaces the previous one wholesale on every fetch.
type Profile struct {
	ID             string   `json:"id"`                       // Unique identifier for the user
	DisplayName    string   `json:"name"`                     // Name shown in the dashboard header
	Email          string   `json:"email"`                    // User's email address
	Role           RoleType `json:"role"`                     // patient, doctor or admin
	Avatar         string   `json:"avatar,omitempty"`         // Avatar URL
	Phone          string   `json:"phone,omitempty"`          // Contact phone
	Specialization string   `json:"specialization,omitempty"` // Doctors only
	Department     string   `json:"department,omitempty"`     // Doctors and admins
}

// Validate rejects profiles the application shell cannot route.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is empty")
	}
	if p.ID == "" {
		return fmt.Errorf("profile has no id")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("profile has unknown role %q", p.Role)
	}
	return nil
}

// Clone returns an independent copy so callers cannot mutate session state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// User is the backend-side record: a Profile plus credentials.
type User struct {
	Profile
	PasswordHash string `json:"-"` // Hashed version of the user's password - never serialize
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
