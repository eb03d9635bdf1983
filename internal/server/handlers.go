package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/cookchat-oss/cookchat/internal/memory"
)

const sessionHeader = "X-Session-ID"

// --- Helpers ---

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// clientIP reads the connecting IP from the forwarding header, falling back
// to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestMetadata(r *http.Request) map[string]string {
	meta := make(map[string]string, 2)
	if ua := r.Header.Get("User-Agent"); ua != "" {
		meta["userAgent"] = ua
	}
	if ip := clientIP(r); ip != "" {
		meta["ip"] = ip
	}
	return meta
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"name":    s.cfg.Name,
		"version": s.cfg.Version,
	})
}

// --- Chat ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []memory.ChatMessage `json:"messages"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.logger.Error("Error processing chat request", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	result, err := s.orchestrator.Chat(r.Context(), r.Header.Get(sessionHeader), body.Messages, requestMetadata(r))
	if err != nil {
		s.logger.Error("Error processing chat request", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	w.Header().Set(sessionHeader, result.SessionID)
	jsonResponse(w, http.StatusOK, map[string]string{
		"response":  result.Reply,
		"sessionId": result.SessionID,
	})
}

// --- Memory ---

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		jsonError(w, http.StatusBadRequest, "Session ID required")
		return
	}

	mem, err := s.orchestrator.Store().Load(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("Error getting memory", "session", sessionID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to get memory")
		return
	}
	if mem == nil {
		jsonResponse(w, http.StatusOK, map[string]interface{}{"messages": []memory.ChatMessage{}})
		return
	}
	jsonResponse(w, http.StatusOK, mem)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		jsonError(w, http.StatusBadRequest, "Session ID required")
		return
	}

	if err := s.orchestrator.Store().Clear(r.Context(), sessionID); err != nil {
		s.logger.Error("Error deleting memory", "session", sessionID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to delete memory")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
