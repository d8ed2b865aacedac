// Package insights generates a short plain-language commentary for payroll
// reports via an external language-model API. The whole feature is optional:
// with no INSIGHTS_API_KEY configured it reports disabled, and every failure
// path degrades to an absent narrative rather than an error the caller has
// to handle.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"
const defaultModel = "gpt-4o-mini"

var httpClient = &http.Client{Timeout: 15 * time.Second}

type PayrollStats struct {
	BusinessName  string
	FromDate      string
	ToDate        string
	WorkerCount   int
	TotalHours    float64
	OvertimeHours float64
	GrossPayCents int64
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GeneratePayrollInsights asks the model for a 2-3 sentence commentary on
// the aggregate numbers. Only aggregates leave the system; no names, PINs
// or per-worker figures go into the prompt.
func GeneratePayrollInsights(ctx context.Context, stats PayrollStats) (string, error) {
	apiKey := os.Getenv("INSIGHTS_API_KEY")
	if apiKey == "" {
		return "", errors.New("insights api key not configured")
	}
	endpoint := os.Getenv("INSIGHTS_API_URL")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := os.Getenv("INSIGHTS_MODEL")
	if model == "" {
		model = defaultModel
	}

	prompt := fmt.Sprintf(
		"Payroll period %s to %s for %q: %d workers, %.2f total hours, %.2f overtime hours, gross pay $%.2f. "+
			"Write 2-3 sentences of neutral commentary for a payroll manager. No advice, no speculation about individuals.",
		stats.FromDate, stats.ToDate, stats.BusinessName,
		stats.WorkerCount, stats.TotalHours, stats.OvertimeHours,
		float64(stats.GrossPayCents)/100)

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("insights api status %d: %s", resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("insights api returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
