package domain

// RegisterProfile is the sign-up form submitted by a new business owner.
type RegisterProfile struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	BusinessType    string `json:"businessType"`
	AcceptedTerms   bool   `json:"acceptedTerms"`
}

// Onboarding is the first-run business setup an owner submits after sign-up.
type Onboarding struct {
	ProductTypes []string `json:"productTypes"`
	MainClub     Club     `json:"mainClub"`
	InitialGoal  string   `json:"initialGoal,omitempty"`
	Clubs        []Club   `json:"clubs"`
}

// BusinessTypes lists the business types offered at sign-up.
var BusinessTypes = []string{"gym", "club", "studio", "store", "other"}

// ValidBusinessType returns true if t is one of BusinessTypes.
func ValidBusinessType(t string) bool {
	for _, bt := range BusinessTypes {
		if bt == t {
			return true
		}
	}
	return false
}
