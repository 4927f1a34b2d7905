package workplace

import (
	"context"
	"net/http"
	"net/url"
)

const profileFields = "id,name,first_name,cover,picture{is_silhouette},department,title,managers"

// FetchProfile returns the profile of memberID.
func (c *Client) FetchProfile(ctx context.Context, memberID string) (Profile, error) {
	q := url.Values{}
	q.Set("fields", profileFields)

	var wire profileWire
	if err := c.do(ctx, "fetch_profile", http.MethodGet, "/"+url.PathEscape(memberID), q, nil, &wire); err != nil {
		return Profile{}, err
	}
	return wire.profile(), nil
}
