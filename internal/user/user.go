// Package user defines the client-owned profile and search filter types
// shared by the matching, chat, and friend components. Profiles are supplied
// by the client at connect time and copied by value into queue and session
// entries; the server never persists them.
package user

// Gender is the profile gender tag. The male tag is subject to the premium
// search gate (see matching.RequiresPremium).
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the known gender tags.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// User is the public profile a client presents when connecting. The ID is an
// opaque, client-generated identifier; the server treats it as the stable
// routing key for the connection, queue, and session registries.
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Gender    Gender   `json:"gender"`
	IsPremium bool     `json:"is_premium"`
	Interests []string `json:"interests,omitempty"`
}

// MatchFilters is the search criteria supplied fresh with every find_match
// request. A zero Gender means no gender preference; an empty Interests
// slice imposes no overlap constraint.
type MatchFilters struct {
	Gender    Gender   `json:"gender,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// Public is the profile subset disclosed to a matched partner. The interest
// list is deliberately withheld from the counterpart.
type Public struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Gender    Gender `json:"gender"`
	IsPremium bool   `json:"is_premium"`
}

// Public returns the disclosable subset of the profile.
func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Gender:    u.Gender,
		IsPremium: u.IsPremium,
	}
}

// HasAnyInterest reports whether the profile's interest set intersects the
// given set. An empty argument never intersects.
func (u User) HasAnyInterest(interests []string) bool {
	for _, want := range interests {
		for _, have := range u.Interests {
			if want == have {
				return true
			}
		}
	}
	return false
}
