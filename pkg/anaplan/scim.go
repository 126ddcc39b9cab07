package anaplan

import (
	"context"
	"net/url"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/pkg/filter"
)

func (c *Client) usersURL() string {
	return c.hosts.API + "/scim/1/0/v2/Users"
}

// GetUser returns one user with their workspace entitlements.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := c.svc.Get(ctx, c.usersURL()+"/"+url.PathEscape(userID), nil, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// ListUsers lists users matching f. A zero Expr lists every user.
//
//	users, err := c.ListUsers(ctx, filter.Field(filter.FamilyName).Eq("Smith"))
func (c *Client) ListUsers(ctx context.Context, f filter.Expr) ([]User, error) {
	var params url.Values

	if !f.IsZero() {
		rendered, err := f.Render()
		if err != nil {
			return nil, err
		}

		params = url.Values{"filter": {rendered}}
	}

	return api.ListAll[User](ctx, c.svc, api.PageQuery{
		URL:       c.usersURL(),
		ResultKey: "Resources",
		Params:    params,
		Scheme:    &api.SCIMPaging,
	})
}
