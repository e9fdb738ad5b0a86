package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

var errProfilesDisabled = errors.New("profile lookup not configured")

// Profile looks up display information for userID from the external profile service.
// Callers are expected to fall back to model.UnknownProfile on any error.
func (c *Client) Profile(ctx context.Context, userID string) (model.Profile, error) {
	if c.profileURL == "" {
		return model.Profile{}, errProfilesDisabled
	}

	var p model.Profile
	if err := c.doURL(ctx, http.MethodGet, c.profileURL+"/api/v1/profiles/"+url.PathEscape(userID), nil, &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}
