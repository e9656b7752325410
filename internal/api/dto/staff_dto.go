package dto

import "time"

// StaffAuthRequest payload for POST /staff/auth.
type StaffAuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// StaffAddRequest payload for POST /staff/add.
type StaffAddRequest struct {
	ProjectID int32  `json:"project_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	Token    string `json:"token"`
	ExpireAt int64  `json:"expire_at"`
}

// StaffResponse describes a staff account. The password hash never leaves
// the service.
type StaffResponse struct {
	ID        uint64    `json:"id"`
	ProjectID int32     `json:"project_id"`
	Email     string    `json:"email"`
	Login     string    `json:"login"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
