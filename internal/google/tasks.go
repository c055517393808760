package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nholloway/solace-agent/internal/httpkit"
)

const defaultTasksURL = "https://tasks.googleapis.com/tasks/v1"

// Task is an item in the user's default task list.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Due   string `json:"due,omitempty"`
}

type tasksListResponse struct {
	Items []Task `json:"items"`
}

// ListTasks returns up to max incomplete tasks from the default list.
func (m *Manager) ListTasks(ctx context.Context, max int) ([]Task, error) {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = 10
	}

	q := url.Values{}
	q.Set("maxResults", fmt.Sprint(max))
	q.Set("showCompleted", "false")

	endpoint := m.tasksURL + "/lists/@default/tasks?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 1024)
		return nil, fmt.Errorf("list tasks failed (%d): %s", resp.StatusCode, body)
	}

	var out tasksListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return out.Items, nil
}

// CreateTask adds a task to the default list. A nil due leaves the
// task undated.
func (m *Manager) CreateTask(ctx context.Context, title string, due *time.Time) (*Task, error) {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]string{"title": title}
	if due != nil {
		// The Tasks API accepts RFC 3339 but only honors the date part.
		body["due"] = due.UTC().Format("2006-01-02") + "T00:00:00.000Z"
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := m.tasksURL + "/lists/@default/tasks"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 1024)
		return nil, fmt.Errorf("create task failed (%d): %s", resp.StatusCode, errBody)
	}

	var task Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}
