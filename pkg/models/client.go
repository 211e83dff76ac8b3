package models

import (
	"encoding/json"
	"strings"
)

// NotAvailable fills client profile fields that could not be resolved.
const NotAvailable = "N/A"

// Client is the profile of the customer a job belongs to.
type Client struct {
	Name    string `json:"name"`
	Email   string `json:"gmail"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// UnmarshalJSON accepts both "gmail" and "email" for the address.
func (c *Client) UnmarshalJSON(data []byte) error {
	type clientAlias Client
	aux := struct {
		*clientAlias
		AltEmail string `json:"email"`
	}{clientAlias: (*clientAlias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Email == "" {
		c.Email = aux.AltEmail
	}
	return nil
}

// StubClient synthesizes a profile for email when the lookup fails. The name
// is the local part of the address.
func StubClient(email string) Client {
	email = strings.TrimSpace(email)
	name := email
	if at := strings.Index(email, "@"); at >= 0 {
		name = email[:at]
	}
	return Client{
		Name:    name,
		Email:   email,
		Phone:   NotAvailable,
		Company: NotAvailable,
	}
}
