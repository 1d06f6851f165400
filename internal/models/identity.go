package models

// Identity is the resolved caller of an operation. The zero value is anonymous.
type Identity struct {
	UserID    uint
	SessionID string
}

// Anonymous is the identity of a caller without a valid session.
var Anonymous = Identity{}

// IdentityFor returns an authenticated identity for userID.
func IdentityFor(userID uint) Identity {
	return Identity{UserID: userID}
}

// IsAnonymous reports whether the caller has no session.
func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}
