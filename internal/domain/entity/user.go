package entity

import (
	"strings"
	"time"
)

type User struct {
	ID           int64
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Age          *int
	State        string
	Sports       []string
	CreatedAt    time.Time
}

// Profile is the editable part of a user record.
type Profile struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Age      *int     `json:"age"`
	State    string   `json:"state"`
	Sports   []string `json:"sports"`
}

func (u *User) Profile() Profile {
	sports := u.Sports
	if sports == nil {
		sports = []string{}
	}
	return Profile{
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Age:      u.Age,
		State:    u.State,
		Sports:   sports,
	}
}

// JoinSports and SplitSports convert between the list form and the
// comma separated column the sports are stored in.
func JoinSports(sports []string) string {
	out := make([]string, 0, len(sports))
	for _, s := range sports {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

func SplitSports(column string) []string {
	if strings.TrimSpace(column) == "" {
		return []string{}
	}
	parts := strings.Split(column, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
