// Package identity fetches user profile data from the hosted identity
// provider's management API. It is only consulted when an account is
// provisioned for a first-seen user; steady-state requests never touch it.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sjak1/rabbithole-backend/application/ports"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// Client implements the identity-provider port against a Clerk-compatible
// user API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an identity client for the given management API.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type wireEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type wireUser struct {
	ID                    string             `json:"id"`
	FirstName             string             `json:"first_name"`
	LastName              string             `json:"last_name"`
	PrimaryEmailAddressID string             `json:"primary_email_address_id"`
	EmailAddresses        []wireEmailAddress `json:"email_addresses"`
}

// FetchProfile resolves the profile for an authenticated user id.
func (c *Client) FetchProfile(ctx context.Context, userID string) (*ports.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("identity provider", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("identity provider", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1_000_000))
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("identity provider", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.NewUpstreamError("identity provider",
			fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var user wireUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, pkgerrors.NewUpstreamError("identity provider", fmt.Errorf("parse user: %w", err))
	}

	return &ports.Profile{
		Email:       primaryEmail(user),
		DisplayName: displayName(user),
	}, nil
}

// primaryEmail picks the address flagged primary, falling back to the first
// listed one.
func primaryEmail(user wireUser) string {
	for _, addr := range user.EmailAddresses {
		if addr.ID == user.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(user.EmailAddresses) > 0 {
		return user.EmailAddresses[0].EmailAddress
	}
	return ""
}

func displayName(user wireUser) string {
	return strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
}
