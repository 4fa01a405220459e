package api

import (
	"context"
	"fmt"
	"net/http"
)

type registerCustomerBody struct {
	TelegramID Flex   `json:"telegram_id"`
	FullName   string `json:"full_name"`
	Username   string `json:"username"`
}

// RegisterCustomer creates the customer for a Telegram user.
func (c *Client) RegisterCustomer(ctx context.Context, telegramID int64, fullName, username string) (*Customer, error) {
	var out Customer
	err := c.do(ctx, call{
		op:     "register_customer",
		method: http.MethodPost,
		url:    c.base + "/customers/",
		body:   registerCustomerBody{TelegramID: FlexID(telegramID), FullName: fullName, Username: username},
		out:    &out,
		want:   createOK,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustomer returns ErrNotFound for unregistered users.
func (c *Client) GetCustomer(ctx context.Context, telegramID int64) (*Customer, error) {
	var out Customer
	err := c.do(ctx, call{
		op:       "get_customer",
		method:   http.MethodGet,
		url:      fmt.Sprintf("%s/customers/%d/", c.base, telegramID),
		out:      &out,
		want:     fetchOK,
		notFound: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomerType changes the account classification.
func (c *Client) UpdateCustomerType(ctx context.Context, telegramID int64, userType string) (*Customer, error) {
	var out Customer
	err := c.do(ctx, call{
		op:       "update_customer_type",
		method:   http.MethodPatch,
		url:      fmt.Sprintf("%s/customers/%d/", c.base, telegramID),
		body:     map[string]string{"user_type": userType},
		out:      &out,
		want:     createOK,
		notFound: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomers returns every customer.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.do(ctx, call{op: "list_customers", method: http.MethodGet, url: c.base + "/customers/", out: &out, want: fetchOK}); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCustomerProperties returns the properties owned by a customer.
func (c *Client) ListCustomerProperties(ctx context.Context, telegramID int64) ([]Property, error) {
	var out []Property
	if err := c.listOf(ctx, "list_customer_properties", telegramID, "properties", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCustomerTours returns the tours a customer requested.
func (c *Client) ListCustomerTours(ctx context.Context, telegramID int64) ([]Tour, error) {
	var out []Tour
	if err := c.listOf(ctx, "list_customer_tours", telegramID, "tours", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCustomerFavorites returns a customer's favorite records.
func (c *Client) ListCustomerFavorites(ctx context.Context, telegramID int64) ([]Favorite, error) {
	var out []Favorite
	if err := c.listOf(ctx, "list_customer_favorites", telegramID, "favorites", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) listOf(ctx context.Context, op string, telegramID int64, kind string, out any) error {
	return c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/customers/%d/%s/", c.base, telegramID, kind),
		out:    out,
		want:   fetchOK,
	})
}
