package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendClaimReport(t *testing.T) {
	var received ClaimReport
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewInsuranceNotifier(server.URL, "secret-key")
	err := notifier.SendClaimReport(context.Background(), ClaimReport{
		FarmerID:       "farmer-1",
		AnalysisID:     "abc123",
		DamagePercent:  42.5,
		EstimatedClaim: 180_000,
		ReportURL:      "/static/damage_farmer-1.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "farmer-1", received.FarmerID)
	assert.Equal(t, "abc123", received.AnalysisID)
	assert.InDelta(t, 42.5, received.DamagePercent, 1e-9)
	assert.InDelta(t, 180_000, received.EstimatedClaim, 1e-9)
}

func TestSendClaimReportServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewInsuranceNotifier(server.URL, "")
	err := notifier.SendClaimReport(context.Background(), ClaimReport{FarmerID: "farmer-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSendClaimReportOmitsEmptyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Api-Key"]
		assert.False(t, present)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewInsuranceNotifier(server.URL, "")
	require.NoError(t, notifier.SendClaimReport(context.Background(), ClaimReport{}))
}
