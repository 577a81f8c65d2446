package matching

import "github.com/mingle/chat-app/internal/user"

// RequiresPremium reports whether a profile/filter combination falls under
// the premium search gate: a non-premium male profile may not search for
// female partners. The gate is asymmetric: no other profile/filter
// combination is gated.
func RequiresPremium(u user.User, f user.MatchFilters) bool {
	return u.Gender == user.GenderMale && f.Gender == user.GenderFemale && !u.IsPremium
}

// Compatible decides whether two (profile, filter) pairs may be matched.
// It is pure and symmetric: swapping the argument pairs yields the same
// result. All rules must hold:
//
//  1. The two profiles are distinct users.
//  2. Neither side violates the premium gate (checked again here even
//     though the gateway rejects gated searches before they reach the
//     queue).
//  3. Each side's gender filter, if set, matches the other's profile.
//  4. Each side's interest filter, if non-empty, overlaps the other's
//     interest set.
func Compatible(a user.User, fa user.MatchFilters, b user.User, fb user.MatchFilters) bool {
	if a.ID == b.ID {
		return false
	}

	if RequiresPremium(a, fa) || RequiresPremium(b, fb) {
		return false
	}

	if fa.Gender != "" && fa.Gender != b.Gender {
		return false
	}
	if fb.Gender != "" && fb.Gender != a.Gender {
		return false
	}

	if len(fa.Interests) > 0 && !b.HasAnyInterest(fa.Interests) {
		return false
	}
	if len(fb.Interests) > 0 && !a.HasAnyInterest(fb.Interests) {
		return false
	}

	return true
}
