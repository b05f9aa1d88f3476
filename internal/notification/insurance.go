package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ClaimReport is the payload delivered to the insurance partner after an
// assessment produced a claim estimate. Field names are part of the partner
// contract.
type ClaimReport struct {
	FarmerID       string  `json:"farmer_id"`
	AnalysisID     string  `json:"analysis_id"`
	DamagePercent  float64 `json:"damage_percent"`
	EstimatedClaim float64 `json:"estimated_claim"`
	ReportURL      string  `json:"report_url"`
}

// InsuranceNotifier posts claim reports to the partner webhook.
type InsuranceNotifier struct {
	url    string
	apiKey string
	client *http.Client
}

func NewInsuranceNotifier(url, apiKey string) *InsuranceNotifier {
	return &InsuranceNotifier{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *InsuranceNotifier) SendClaimReport(ctx context.Context, report ClaimReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("X-API-Key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to deliver claim report, status code: %d", resp.StatusCode)
	}

	return nil
}
