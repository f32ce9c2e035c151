package auth

import "time"

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Confirmed    bool
	Avatar       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the client-facing view of a User.
type UserSummary struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Avatar    *string `json:"avatar"`
	Confirmed bool    `json:"confirmed"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Avatar:    u.Avatar,
		Confirmed: u.Confirmed,
	}
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Registration struct {
	Tokens
	User UserSummary `json:"user"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
