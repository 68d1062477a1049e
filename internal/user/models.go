package user

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

var Roles = []Role{RolePlayer, RoleCoach, RoleDoctor, RoleAdmin}

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RolePlayer, RoleCoach, RoleDoctor, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Label is the display name used on dashboards.
func (r Role) Label() string {
	switch r {
	case RolePlayer:
		return "Player"
	case RoleCoach:
		return "Coach"
	case RoleDoctor:
		return "Doctor"
	case RoleAdmin:
		return "Admin"
	}
	return string(r)
}

// Player health statuses shown on coach and doctor dashboards.
const (
	StatusOptimal         = "Optimal"
	StatusAtRisk          = "At Risk"
	StatusUnderperforming = "Underperforming"
	StatusRecovering      = "Recovering"
)

var PlayerStatuses = []string{StatusOptimal, StatusAtRisk, StatusUnderperforming, StatusRecovering}

type User struct {
	ID           string    `json:"id"`
	LoginID      string    `json:"login_id,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Username is "@" followed by the local part of the email address.
func (u User) Username() string {
	if u.Email == "" {
		return ""
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return "@" + local
}

type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     Role   `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Username: u.Username(), Role: u.Role, Status: u.Status}
}

type Assignment struct {
	PlayerID string `json:"player_id" validate:"required"`
	CoachID  string `json:"coach_id"`
	DoctorID string `json:"doctor_id"`
}

// Profile is the personal card shown on each role's profile page.
// DateOfBirth reads like "02 January 2006 (20)". Status is set for players only.
type Profile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Sex         string `json:"sex"`
	Status      string `json:"status,omitempty"`
	Position    string `json:"position"`
	BloodType   string `json:"blood_type"`
	Email       string `json:"email"`
}

// Age in whole years on the given day.
func Age(dob, on time.Time) int {
	years := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	return years
}

func formatBirth(dob *time.Time, on time.Time) string {
	if dob == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d)", dob.Format("02 January 2006"), Age(*dob, on))
}

type ListFilter struct {
	Role   Role
	Search string
	Page   int
}

type Page struct {
	Users   []User `json:"users"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Total   int    `json:"total"`
}
