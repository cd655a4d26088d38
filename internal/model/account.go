package model

import "time"

// Role is the principal kind a credential belongs to. The set is closed:
// every account is either a member or an administrator, never both.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "administrator"
)

// ParseRole maps a client-supplied role name to a Role, "" if unknown.
func ParseRole(s string) Role {
	switch s {
	case string(RoleMember):
		return RoleMember
	case string(RoleAdmin), "admin":
		return RoleAdmin
	}
	return ""
}

// Member is a student account. session_id/session_expires_at form the
// single authoritative session slot: NULL session_id means signed out.
type Member struct {
	ID               string     `json:"id"`
	LoginID          string     `json:"login_id"`
	PasswordHash     string     `json:"-"`
	Name             string     `json:"name"`
	Department       string     `json:"department"`
	AvatarURL        string     `json:"avatar_url"`
	SessionID        *string    `json:"-"`
	SessionExpiresAt *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

type MemberPublic struct {
	ID         string    `json:"id"`
	LoginID    string    `json:"login_id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Member) ToPublic() MemberPublic {
	return MemberPublic{
		ID:         m.ID,
		LoginID:    m.LoginID,
		Name:       m.Name,
		Department: m.Department,
		AvatarURL:  m.AvatarURL,
		CreatedAt:  m.CreatedAt,
	}
}

// Admin is an administrator account with its own session slot, kept in a
// separate table so the two principal kinds are never mixed.
type Admin struct {
	ID               string     `json:"id"`
	LoginID          string     `json:"login_id"`
	PasswordHash     string     `json:"-"`
	Name             string     `json:"name"`
	SessionID        *string    `json:"-"`
	SessionExpiresAt *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

type AdminPublic struct {
	ID        string    `json:"id"`
	LoginID   string    `json:"login_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Admin) ToPublic() AdminPublic {
	return AdminPublic{ID: a.ID, LoginID: a.LoginID, Name: a.Name, CreatedAt: a.CreatedAt}
}
