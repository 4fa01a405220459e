package api

import (
	"context"
	"fmt"
	"net/http"
)

// GetProperty returns ErrNotFound for unknown ids.
func (c *Client) GetProperty(ctx context.Context, id int64) (*Property, error) {
	var out Property
	err := c.do(ctx, call{
		op:       "get_property",
		method:   http.MethodGet,
		url:      fmt.Sprintf("%s/properties/%d/", c.base, id),
		out:      &out,
		want:     fetchOK,
		notFound: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFavorite marks a property as a favorite of the customer.
func (c *Client) CreateFavorite(ctx context.Context, propertyID, telegramID int64) (*Favorite, error) {
	var out Favorite
	err := c.do(ctx, call{
		op:     "create_favorite",
		method: http.MethodPost,
		url:    c.base + "/favorites/",
		body:   Favorite{Property: propertyID, CustomerTelegramID: FlexID(telegramID)},
		out:    &out,
		want:   createOK,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFavorite removes a favorite record by its own id.
func (c *Client) DeleteFavorite(ctx context.Context, favoriteID int64) error {
	return c.do(ctx, call{
		op:     "delete_favorite",
		method: http.MethodDelete,
		url:    fmt.Sprintf("%s/favorites/%d/", c.base, favoriteID),
		want:   deleteOK,
	})
}

// CreateTour submits a tour request.
func (c *Client) CreateTour(ctx context.Context, t Tour) (*Tour, error) {
	t.ID = 0
	t.Status = ""
	var out Tour
	err := c.do(ctx, call{
		op:     "create_tour",
		method: http.MethodPost,
		url:    c.base + "/tours/",
		body:   t,
		out:    &out,
		want:   createOK,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
