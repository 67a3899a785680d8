package domain

// AccountKind distinguishes business owners from employees created by an owner.
type AccountKind string

const (
	AccountOwner    AccountKind = "owner"
	AccountEmployee AccountKind = "employee"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	return k == AccountOwner || k == AccountEmployee
}

// User is the identity snapshot returned by the backend on login/register.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         string      `json:"role,omitempty"`
	Kind         AccountKind `json:"userType"`
	IsFirstLogin bool        `json:"isFirstLogin,omitempty"`
	BusinessType string      `json:"businessType,omitempty"`
	ProfileImage string      `json:"profileImage,omitempty"`
}

// IsEmployee reports whether the account was created by an owner.
func (u User) IsEmployee() bool {
	return u.Kind == AccountEmployee
}

// UserPatch is a partial update merged into a User. Nil fields are left alone.
type UserPatch struct {
	Name         *string
	Role         *string
	IsFirstLogin *bool
	BusinessType *string
	ProfileImage *string
}

// Apply returns u with every non-nil field of p merged in.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsFirstLogin != nil {
		u.IsFirstLogin = *p.IsFirstLogin
	}
	if p.BusinessType != nil {
		u.BusinessType = *p.BusinessType
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
	return u
}
