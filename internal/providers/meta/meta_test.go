package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

func testWindow() periods.Window {
	return periods.Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 7, 23, 59, 59, 0, time.UTC),
	}
}

func testAdapter(t *testing.T, serverURL string) *Adapter {
	t.Helper()
	adapter, err := New(config.MetaCredentials{AccessToken: "tok", AccountID: "act_1", BaseURL: serverURL})
	require.NoError(t, err)
	return adapter
}

const insightsBody = `{
  "data": [
    {
      "impressions": "20000",
      "clicks": "500",
      "spend": "350.25",
      "actions": [
        {"action_type": "purchase", "value": "40"},
        {"action_type": "link_click", "value": "480"}
      ],
      "action_values": [
        {"action_type": "purchase", "value": "1401.00"}
      ]
    },
    {
      "impressions": "10000",
      "clicks": "100",
      "spend": "149.75",
      "actions": [{"action_type": "purchase", "value": "10"}],
      "action_values": [{"action_type": "purchase", "value": "599.00"}]
    }
  ]
}`

func TestGetAccountSummaryDerivesRatiosFromTotals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/act_1/insights", r.URL.Path)
		require.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Write([]byte(insightsBody))
	}))
	defer server.Close()

	summary, err := testAdapter(t, server.URL).GetAccountSummary(context.Background(), testWindow())
	require.NoError(t, err)

	require.Equal(t, 30000, summary.Impressions)
	require.Equal(t, 600, summary.Clicks)
	require.InDelta(t, 500.0, summary.Spend, 1e-9)
	require.Equal(t, 50, summary.Conversions)
	require.InDelta(t, 2000.0, summary.ConversionValue, 1e-9)

	// Ratios come from summed totals: 600/30000, 500/600, 500/50, 2000/500.
	require.InDelta(t, 2.0, summary.CTR, 1e-9)
	require.InDelta(t, 0.8333, summary.AvgCPC, 1e-3)
	require.InDelta(t, 10.0, summary.CPA, 1e-9)
	require.InDelta(t, 4.0, summary.ROAS, 1e-9)
}

func TestGetAccountSummaryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": [{"impressions": "100", "clicks": "5", "spend": "1.00"}]}`))
	}))
	defer server.Close()

	summary, err := testAdapter(t, server.URL).GetAccountSummary(context.Background(), testWindow())
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 100, summary.Impressions)
}

func TestGetAccountSummaryDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad token"}}`))
	}))
	defer server.Close()

	_, err := testAdapter(t, server.URL).GetAccountSummary(context.Background(), testWindow())
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestGetAccountSummarySumsAcrossPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/act_1/insights":
			fmt.Fprintf(w, `{
				"data": [{"impressions": "100", "clicks": "10", "spend": "100.00"}],
				"paging": {"next": "http://%s/act_1/insights/page2"}
			}`, r.Host)
		case "/act_1/insights/page2":
			w.Write([]byte(`{"data": [{"impressions": "50", "clicks": "5", "spend": "100.00"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	summary, err := testAdapter(t, server.URL).GetAccountSummary(context.Background(), testWindow())
	require.NoError(t, err)
	require.InDelta(t, 200.0, summary.Spend, 1e-9)
	require.Equal(t, 150, summary.Impressions)
	require.Equal(t, 15, summary.Clicks)
}

func TestGetAccountSummaryBoundsPageFollowing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Every page links to another; the adapter must stop at its cap.
		fmt.Fprintf(w, `{
			"data": [{"impressions": "100", "clicks": "1", "spend": "10.00"}],
			"paging": {"next": "http://%s/act_1/insights"}
		}`, r.Host)
	}))
	defer server.Close()

	summary, err := testAdapter(t, server.URL).GetAccountSummary(context.Background(), testWindow())
	require.NoError(t, err)
	require.Equal(t, int32(maxInsightsPages), calls.Load())
	require.Equal(t, 100*maxInsightsPages, summary.Impressions)
}

func TestNewValidatesCredentials(t *testing.T) {
	_, err := New(config.MetaCredentials{AccountID: "act_1"})
	require.ErrorIs(t, err, errAccessTokenRequired)

	_, err = New(config.MetaCredentials{AccessToken: "tok"})
	require.ErrorIs(t, err, errAccountIDRequired)
}

func TestNewBaseURL(t *testing.T) {
	adapter, err := New(config.MetaCredentials{AccessToken: "tok", AccountID: "act_1"})
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, adapter.baseURL)

	adapter, err = New(config.MetaCredentials{AccessToken: "tok", AccountID: "act_1", BaseURL: "https://graph.example.test/v21.0/"})
	require.NoError(t, err)
	require.Equal(t, "https://graph.example.test/v21.0", adapter.baseURL, "trailing slash is trimmed")
}
