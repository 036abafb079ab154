package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity carries the authenticated caller. Services receive it explicitly.
type Identity struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Authenticated reports whether the identity belongs to a real user.
func (i Identity) Authenticated() bool { return i.UserID > 0 }
