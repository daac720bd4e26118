// Package meta adapts the Meta Marketing API insights endpoint to the
// dashboard's ad-spend provider contract.
package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	dateLayout     = "2006-01-02"

	maxRetries       = 3
	retryBackoff     = 500 * time.Millisecond
	maxInsightsPages = 10
)

var (
	errAccessTokenRequired = errors.New("meta access token is required")
	errAccountIDRequired   = errors.New("meta ad account id is required")
)

// Adapter implements providers.AdsProvider against one ad account.
type Adapter struct {
	http        *http.Client
	baseURL     string
	accessToken string
	accountID   string
}

func New(creds config.MetaCredentials) (*Adapter, error) {
	if creds.AccessToken == "" {
		return nil, errAccessTokenRequired
	}
	if creds.AccountID == "" {
		return nil, errAccountIDRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		http:        &http.Client{},
		baseURL:     baseURL,
		accessToken: creds.AccessToken,
		accountID:   creds.AccountID,
	}, nil
}

// insightsRow is the account-level insights shape; numeric fields arrive as
// strings.
type insightsRow struct {
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Spend       string `json:"spend"`
	Actions     []struct {
		ActionType string `json:"action_type"`
		Value      string `json:"value"`
	} `json:"actions"`
	ActionValues []struct {
		ActionType string `json:"action_type"`
		Value      string `json:"value"`
	} `json:"action_values"`
}

type insightsResponse struct {
	Data []insightsRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// GetAccountSummary fetches account insights for the window and derives the
// ratio metrics from the summed totals, never from per-row averages.
func (a *Adapter) GetAccountSummary(ctx context.Context, window periods.Window) (*providers.AdAccountSummary, error) {
	rows, err := a.fetchInsights(ctx, window)
	if err != nil {
		return nil, err
	}

	summary := &providers.AdAccountSummary{}
	for _, row := range rows {
		summary.Impressions += int(parseNumber(row.Impressions))
		summary.Clicks += int(parseNumber(row.Clicks))
		summary.Spend += parseNumber(row.Spend)
		for _, action := range row.Actions {
			if action.ActionType == "purchase" {
				summary.Conversions += int(parseNumber(action.Value))
			}
		}
		for _, value := range row.ActionValues {
			if value.ActionType == "purchase" {
				summary.ConversionValue += parseNumber(value.Value)
			}
		}
	}

	if summary.Impressions > 0 {
		summary.CTR = float64(summary.Clicks) / float64(summary.Impressions) * 100
	}
	if summary.Clicks > 0 {
		summary.AvgCPC = summary.Spend / float64(summary.Clicks)
	}
	if summary.Conversions > 0 {
		summary.CPA = summary.Spend / float64(summary.Conversions)
	}
	if summary.Spend > 0 {
		summary.ROAS = summary.ConversionValue / summary.Spend
	}
	return summary, nil
}

func (a *Adapter) fetchInsights(ctx context.Context, window periods.Window) ([]insightsRow, error) {
	timeRange := fmt.Sprintf(`{"since":%q,"until":%q}`,
		window.Start.Format(dateLayout), window.End.Format(dateLayout))

	query := url.Values{}
	query.Set("fields", "impressions,clicks,spend,actions,action_values")
	query.Set("time_range", timeRange)
	query.Set("level", "account")
	query.Set("access_token", a.accessToken)

	endpoint := fmt.Sprintf("%s/%s/insights?%s", a.baseURL, a.accountID, query.Encode())

	// The Graph API chunks large responses; every page must be summed or the
	// totals undercount. Each page fetch retries independently.
	var rows []insightsRow
	for page := 0; page < maxInsightsPages && endpoint != ""; page++ {
		var (
			fetched []insightsRow
			next    string
		)
		backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBackoff))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			fetched, next, err = a.fetchPage(ctx, endpoint)
			return err
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, fetched...)
		endpoint = next
	}
	return rows, nil
}

func (a *Adapter) fetchPage(ctx context.Context, endpoint string) ([]insightsRow, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating insights request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", retry.RetryableError(fmt.Errorf("fetching insights: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return nil, "", retry.RetryableError(fmt.Errorf("insights status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("insights status %d: %s", resp.StatusCode, string(body))
	}

	var parsed insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("decoding insights: %w", err)
	}
	return parsed.Data, parsed.Paging.Next, nil
}

func parseNumber(raw string) float64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
