package domain

// Club is a business location. The session caches the user's main club for
// display in the console header.
type Club struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
