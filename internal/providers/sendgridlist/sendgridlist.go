// Package sendgridlist adapts the SendGrid marketing contacts API to the
// dashboard's email provider contract.
package sendgridlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"

	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
)

const defaultHost = "https://api.sendgrid.com"

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// Adapter implements providers.EmailProvider.
type Adapter struct {
	apiKey string
	host   string
}

func New(creds config.SendgridCredentials) (*Adapter, error) {
	key := strings.TrimSpace(creds.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	return &Adapter{apiKey: key, host: defaultHost}, nil
}

type contactCountResponse struct {
	ContactCount  int `json:"contact_count"`
	BillableCount int `json:"billable_count"`
}

// GetListStats reads the marketing contact counts. Billable contacts are the
// deliverable ones; the remainder are suppressed or unsubscribed.
func (a *Adapter) GetListStats(ctx context.Context) (*providers.EmailListStats, error) {
	request := sendgrid.GetRequest(a.apiKey, "/v3/marketing/contacts/count", a.host)
	request.Method = http.MethodGet

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid contact count: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sendgrid contact count status %d: %s", response.StatusCode, response.Body)
	}

	var parsed contactCountResponse
	if err := json.Unmarshal([]byte(response.Body), &parsed); err != nil {
		return nil, fmt.Errorf("decoding contact count: %w", err)
	}

	stats := &providers.EmailListStats{
		TotalContacts:  parsed.ContactCount,
		ActiveContacts: parsed.BillableCount,
	}
	if diff := parsed.ContactCount - parsed.BillableCount; diff > 0 {
		stats.UnsubscribedContacts = diff
	}
	return stats, nil
}
