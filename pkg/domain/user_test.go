package domain

import "testing"

func TestUserPatchApply(t *testing.T) {
	u := User{ID: "u1", Name: "Ana", Email: "ana@club.test", Kind: AccountEmployee, IsFirstLogin: true}

	off := false
	name := "Ana María"
	got := UserPatch{IsFirstLogin: &off, Name: &name}.Apply(u)

	if got.IsFirstLogin {
		t.Error("IsFirstLogin = true, want false")
	}
	if got.Name != "Ana María" {
		t.Errorf("Name = %q, want %q", got.Name, "Ana María")
	}
	if got.Email != u.Email || got.ID != u.ID || got.Kind != u.Kind {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestUserPatchEmptyIsNoop(t *testing.T) {
	u := User{ID: "u1", Name: "Ana", Role: "manager", ProfileImage: "a.png"}
	if got := (UserPatch{}).Apply(u); got != u {
		t.Errorf("Apply(empty) = %+v, want %+v", got, u)
	}
}

func TestAccountKindValid(t *testing.T) {
	tests := []struct {
		kind AccountKind
		want bool
	}{
		{AccountOwner, true},
		{AccountEmployee, true},
		{"admin", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("AccountKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestValidBusinessType(t *testing.T) {
	if !ValidBusinessType("gym") {
		t.Error("gym should be valid")
	}
	if ValidBusinessType("Gym") {
		t.Error("business types are case-sensitive")
	}
}
