package domain

// Session is a server-side login session identified by an opaque bearer
// token. Timestamps are epoch seconds so validity checks compare directly
// against the store's clock.
//
// StaffID is a one-way reference; a StaffUser never points back at its
// sessions.
type Session struct {
	ID        uint64
	StaffID   uint64
	Token     string
	CreatedAt int64
	UpdatedAt int64
	ExpireAt  int64
	Locked    bool
}

// ValidAt reports whether the session is usable at the given epoch second.
// The store-side EXISTS check is authoritative; this helper exists for
// callers that already hold the row.
func (s *Session) ValidAt(nowEpoch int64) bool {
	return !s.Locked && s.ExpireAt > nowEpoch
}

// Lifetime returns the granted lifetime in seconds.
func (s *Session) Lifetime() int64 {
	return s.ExpireAt - s.CreatedAt
}
