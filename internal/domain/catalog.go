package domain

// Role distinguishes portal administrators from standard users. Only the
// coarse admin/standard split exists; there is no finer permission graph.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// User is a principal from the externally owned user directory. The access
// engine only reads users; creation and credential handling live elsewhere.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"nom"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the user may administer access grants.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Application is a registered resource from the externally owned catalog.
type Application struct {
	ID           int    `json:"id"`
	Name         string `json:"nom"`
	AppURL       string `json:"app_url"`
	DisplayOrder int    `json:"display_order"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}
