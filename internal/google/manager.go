package google

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nholloway/solace-agent/internal/config"
	"github.com/nholloway/solace-agent/internal/httpkit"
)

// Manager is the application's handle on the Google integration. A nil
// Manager behaves as "integration disabled" for status checks.
type Manager struct {
	tokens      *TokenManager
	httpClient  *http.Client
	calendarURL string
	tasksURL    string
	logger      *slog.Logger
}

// NewManager builds a Manager from configuration. Returns nil when the
// integration is disabled or lacks OAuth client credentials.
func NewManager(cfg config.GoogleConfig, memoryDir string, logger *slog.Logger) *Manager {
	if !cfg.Enabled || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	return &Manager{
		tokens: NewTokenManager(
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.RedirectURL,
			cfg.TokenFilePath(memoryDir),
			logger,
		),
		httpClient:  httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
		calendarURL: defaultCalendarURL,
		tasksURL:    defaultTasksURL,
		logger:      logger,
	}
}

// IsAuthorized reports whether a usable token is on file.
func (m *Manager) IsAuthorized() bool {
	if m == nil {
		return false
	}
	return m.tokens.HasToken()
}

// Tokens exposes the token manager for the web layer's OAuth handlers.
func (m *Manager) Tokens() *TokenManager {
	return m.tokens
}
