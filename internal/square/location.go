package square

import (
	"context"
	"net/http"
	"net/url"

	sq "github.com/square/square-go-sdk"
)

// Ping fetches the configured location. It fails when the credentials are
// rejected or the location does not exist.
func (c *Client) Ping(ctx context.Context) error {
	path := "/v2/locations/" + url.PathEscape(c.locationID)

	resp, err := c.api.Locations.Get(ctx, &sq.GetLocationsRequest{LocationID: c.locationID}, c.requestOptions()...)
	if err != nil {
		return apiError(http.MethodGet, path, err)
	}
	if deref(resp.GetLocation().GetID()) == "" {
		return missingID(http.MethodGet, path, "location", resp)
	}
	return nil
}
