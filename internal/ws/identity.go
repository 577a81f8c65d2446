package ws

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mingle/chat-app/internal/user"
)

// maxInterests caps the number of interest tags accepted at connect time so a
// client cannot inflate queue entries arbitrarily.
const maxInterests = 20

// identityFromQuery builds the connecting user's profile from the upgrade
// request's query string. Required parameters are user_id, username, and
// gender; is_premium and interests are optional.
//
//	/ws?user_id=u1&username=alice&gender=female&is_premium=true&interests=music,travel
func identityFromQuery(q url.Values) (user.User, error) {
	id := strings.TrimSpace(q.Get("user_id"))
	if id == "" {
		return user.User{}, fmt.Errorf("missing user_id")
	}

	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		return user.User{}, fmt.Errorf("missing username")
	}

	gender := user.Gender(strings.ToLower(strings.TrimSpace(q.Get("gender"))))
	if !gender.Valid() {
		return user.User{}, fmt.Errorf("invalid gender %q", q.Get("gender"))
	}

	u := user.User{
		ID:        id,
		Username:  username,
		Gender:    gender,
		IsPremium: q.Get("is_premium") == "true",
	}

	if raw := q.Get("interests"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			u.Interests = append(u.Interests, tag)
			if len(u.Interests) == maxInterests {
				break
			}
		}
	}

	return u, nil
}
