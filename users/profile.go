package users

import "strings"

// Profile is the client-visible slice of a user account. The dashboard only
// needs an identifier and something to render in the header; password hashes,
// roles and membership data stay server-side.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns the name to show in the UI, falling back to the email
// address when no name fields are set.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}
