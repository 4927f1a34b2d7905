package workplace

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// FetchMembersPage returns the community members after cursor. An empty
// cursor starts from the first page.
func (c *Client) FetchMembersPage(ctx context.Context, cursor string) (MembersPage, error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}

	var wire membersWire
	if err := c.do(ctx, "fetch_members", http.MethodGet, "/community/members", q, nil, &wire); err != nil {
		return MembersPage{}, err
	}

	return MembersPage{
		Members:    wire.Data,
		NextCursor: wire.Paging.Cursors.After,
	}, nil
}
