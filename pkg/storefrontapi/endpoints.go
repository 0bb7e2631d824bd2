package storefrontapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-engine/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// IdentifierType distinguishes staff users from customers on the identity check.
type IdentifierType string

const (
	IdentifierTypeUser   IdentifierType = "user"
	IdentifierTypeClient IdentifierType = "client"
)

// IdentifierResult answers whether a phone or email is known.
type IdentifierResult struct {
	Found         bool           `json:"found"`
	Type          IdentifierType `json:"type,omitempty"`
	NeedsPassword bool           `json:"needs_password"`
	ClientID      string         `json:"client_id,omitempty"`
	Name          string         `json:"name,omitempty"`
	Photo         string         `json:"photo,omitempty"`
}

// Customer is the client profile checkout is placed for.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// LoginResult is returned by ClientLogin.
type LoginResult struct {
	Success bool     `json:"success"`
	Client  Customer `json:"client"`
}

// ClubConfig describes the loyalty program.
type ClubConfig struct {
	ClubName              string          `json:"club_name"`
	PointsPerCurrencyUnit decimal.Decimal `json:"points_per_currency_unit"`
}

func requireID(value, field string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
	}
	return trimmed, nil
}

func (c *Client) CheckIdentifier(ctx context.Context, identifier string) (IdentifierResult, error) {
	id, err := requireID(identifier, "identifier")
	if err != nil {
		return IdentifierResult{}, err
	}
	var out IdentifierResult
	err = c.do(ctx, http.MethodPost, "auth/check-identifier", nil, map[string]string{"identifier": id}, &out)
	return out, err
}

func (c *Client) RegisterClient(ctx context.Context, name, phone string) (Customer, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(phone) == "" {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}
	var out Customer
	err := c.do(ctx, http.MethodPost, "clients", nil, map[string]string{
		"name":  strings.TrimSpace(name),
		"phone": strings.TrimSpace(phone),
	}, &out)
	return out, err
}

// ClientLogin authenticates a client; password may be empty for passwordless clients.
func (c *Client) ClientLogin(ctx context.Context, clientID, password string) (LoginResult, error) {
	id, err := requireID(clientID, "client id")
	if err != nil {
		return LoginResult{}, err
	}
	body := map[string]string{"client_id": id}
	if password != "" {
		body["password"] = password
	}
	var out LoginResult
	err = c.do(ctx, http.MethodPost, "clients/login", nil, body, &out)
	return out, err
}

func (c *Client) ListAddresses(ctx context.Context, clientID string) ([]types.Address, error) {
	id, err := requireID(clientID, "client id")
	if err != nil {
		return nil, err
	}
	var out []types.Address
	err = c.do(ctx, http.MethodGet, "clients/"+url.PathEscape(id)+"/addresses", nil, nil, &out)
	return out, err
}

// CreateAddress stores a new address for the client.
func (c *Client) CreateAddress(ctx context.Context, clientID string, input types.AddressInput, isDefault bool) (types.Address, error) {
	id, err := requireID(clientID, "client id")
	if err != nil {
		return types.Address{}, err
	}
	body := struct {
		types.AddressInput
		IsDefault bool `json:"is_default"`
	}{AddressInput: input, IsDefault: isDefault}

	var out types.Address
	err = c.do(ctx, http.MethodPost, "clients/"+url.PathEscape(id)+"/addresses", nil, body, &out)
	return out, err
}

func (c *Client) UpdateAddress(ctx context.Context, addressID string, patch types.AddressPatch) (types.Address, error) {
	id, err := requireID(addressID, "address id")
	if err != nil {
		return types.Address{}, err
	}
	var out types.Address
	err = c.do(ctx, http.MethodPatch, "addresses/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteAddress(ctx context.Context, addressID string) error {
	id, err := requireID(addressID, "address id")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "addresses/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListDistricts(ctx context.Context) ([]types.District, error) {
	var out []types.District
	err := c.do(ctx, http.MethodGet, "districts", nil, nil, &out)
	return out, err
}

func (c *Client) SearchStreets(ctx context.Context, term string) ([]types.Street, error) {
	var out []types.Street
	err := c.do(ctx, http.MethodGet, "streets", url.Values{"q": []string{strings.TrimSpace(term)}}, nil, &out)
	return out, err
}

// SubmitOrder places the order. The backend must assign a code.
func (c *Client) SubmitOrder(ctx context.Context, req orders.Request) (orders.Order, error) {
	var out orders.Order
	if err := c.do(ctx, http.MethodPost, "orders", nil, req, &out); err != nil {
		return orders.Order{}, err
	}
	if strings.TrimSpace(out.Code) == "" {
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeDependency, "order backend returned no order code")
	}
	return out, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (orders.Order, error) {
	id, err := requireID(orderID, "order id")
	if err != nil {
		return orders.Order{}, err
	}
	var out orders.Order
	err = c.do(ctx, http.MethodGet, "orders/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) GetClubConfig(ctx context.Context) (ClubConfig, error) {
	var out ClubConfig
	err := c.do(ctx, http.MethodGet, "club/config", nil, nil, &out)
	return out, err
}
