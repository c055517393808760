package web

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

func (s *Server) handleIntegrationStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"google_enabled": s.google != nil,
		"speech_enabled": s.cfg.Speech.Enabled,
		"speech": map[string]any{
			"voice":           s.cfg.Speech.Voice,
			"rate":            s.cfg.Speech.Rate,
			"pitch":           s.cfg.Speech.Pitch,
			"pause_threshold": s.cfg.Speech.PauseThreshold,
		},
	})
}

func (s *Server) handleGoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		s.errorResponse(w, http.StatusNotFound, "google integration is not enabled")
		return
	}
	authURL, err := s.google.Tokens().AuthURL()
	if err != nil {
		s.logger.Error("failed to build auth URL", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to build auth URL")
		return
	}
	s.writeJSON(w, map[string]string{"auth_url": authURL})
}

func (s *Server) handleGoogleCheckAuth(w http.ResponseWriter, r *http.Request) {
	authorized := s.google != nil && s.google.IsAuthorized()
	s.writeJSON(w, map[string]bool{"authorized": authorized})
}

// handleGoogleAuthQR renders the consent URL as a PNG so a phone can
// complete the flow by scanning the screen.
func (s *Server) handleGoogleAuthQR(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		s.errorResponse(w, http.StatusNotFound, "google integration is not enabled")
		return
	}
	authURL, err := s.google.Tokens().AuthURL()
	if err != nil {
		s.logger.Error("failed to build auth URL", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to build auth URL")
		return
	}
	png, err := qrcode.Encode(authURL, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("failed to encode QR code", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to encode QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		s.logger.Debug("failed to write QR response", "error", err)
	}
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		s.errorResponse(w, http.StatusNotFound, "google integration is not enabled")
		return
	}
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		s.errorResponse(w, http.StatusBadRequest, "authorization denied: "+errMsg)
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if err := s.google.Tokens().ExchangeCode(r.Context(), code, state); err != nil {
		s.logger.Error("failed to exchange authorization code", "error", err)
		s.errorResponse(w, http.StatusBadRequest, "failed to complete authorization")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(callbackPage)); err != nil {
		s.logger.Debug("failed to write callback page", "error", err)
	}
}

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Solace - Connected</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Google account connected</h1>
<p>You can close this tab and return to your session.</p>
</body>
</html>
`
