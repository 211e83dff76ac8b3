package api

import (
	"context"
	"strings"

	"paydesk/pkg/models"
)

// Client returns the profile of the client with the given email. The lookup
// is best-effort: on any failure a stub profile derived from the email is
// returned together with the error.
func (c *Client) Client(ctx context.Context, email string) (models.Client, error) {
	const op = "Client"

	email = strings.TrimSpace(email)
	stub := models.StubClient(email)
	if email == "" {
		return stub, newArgumentError(op, "email is required")
	}

	resp, err := c.get(ctx, op, "/clients/"+pathEscape(email), nil)
	if err != nil {
		return stub, err
	}

	var client models.Client
	if err := decodeObject(resp.body, &client, "client"); err != nil {
		return stub, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	// Fill what the backend left out so the profile always renders.
	if client.Email == "" {
		client.Email = email
	}
	if client.Name == "" {
		client.Name = stub.Name
	}
	if client.Phone == "" {
		client.Phone = models.NotAvailable
	}
	if client.Company == "" {
		client.Company = models.NotAvailable
	}
	return client, nil
}
