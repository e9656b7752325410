package domain

import "time"

// StaffUser models an internal operator account.
//
// Password holds the encoded argon2 hash (parameters, salt and digest in one
// self-describing string), never the plaintext. Salt is additionally kept as
// its own column for schema compatibility with legacy rows.
type StaffUser struct {
	ID        uint64
	ProjectID int32
	Email     string
	Login     string
	Password  string
	Salt      []byte
	Active    bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthenticate reports whether the account may log in at all.
func (u *StaffUser) CanAuthenticate() bool {
	return u.Active && !u.Deleted
}
