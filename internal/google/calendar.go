package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nholloway/solace-agent/internal/httpkit"
)

const defaultCalendarURL = "https://www.googleapis.com/calendar/v3"

// Event is an upcoming calendar entry.
type Event struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	Location string `json:"location,omitempty"`
}

type calendarEventsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
		Location string `json:"location"`
	} `json:"items"`
}

// ListUpcomingEvents returns up to max events from the primary
// calendar, ordered by start time.
func (m *Manager) ListUpcomingEvents(ctx context.Context, max int) ([]Event, error) {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = 10
	}

	q := url.Values{}
	q.Set("timeMin", time.Now().UTC().Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprint(max))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	endpoint := m.calendarURL + "/calendars/primary/events?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 1024)
		return nil, fmt.Errorf("list events failed (%d): %s", resp.StatusCode, body)
	}

	var out calendarEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]Event, 0, len(out.Items))
	for _, item := range out.Items {
		start := item.Start.DateTime
		if start == "" {
			// All-day events carry a date only.
			start = item.Start.Date
		}
		events = append(events, Event{
			ID:       item.ID,
			Summary:  item.Summary,
			Start:    start,
			Location: item.Location,
		})
	}
	return events, nil
}
