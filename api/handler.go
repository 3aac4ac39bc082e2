// Package api exposes the orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

const (
	MaxBodyBytes          = 128 << 10
	MaxTextRunes          = 1000
	DefaultConversationID = "demo-1"
)

// Turner runs one dialogue turn.
type Turner interface {
	HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error)
}

type chatRequest struct {
	ConversationID *string `json:"conversationId"`
	Role           *string `json:"role"`
	Text           *string `json:"text"`
}

type chatResponse struct {
	ConversationID string         `json:"conversationId"`
	Response       string         `json:"response"`
	Memory         map[string]any `json:"memory"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	turner Turner
}

func NewHandler(turner Turner) *Handler {
	return &Handler{turner: turner}
}

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", handler.Chat)
	mux.HandleFunc("GET /healthz", handler.Healthz)
	return mux
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Chat handles POST /chat. Bad input gets 400 without running a turn; an
// internal failure gets 500 with the apology and an empty memory.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad request"})
		return
	}

	resp, err := h.turner.HandleTurn(r.Context(), req)
	if err != nil {
		if orchestratorx.IsInvalidInput(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad request"})
			return
		}
		log.Ctx(r.Context()).Error().
			Err(err).
			Str("conversation_id", req.ConversationID).
			Msg("chat turn failed")
		writeJSON(w, http.StatusInternalServerError, chatResponse{
			ConversationID: req.ConversationID,
			Response:       orchestratorx.ApologyText,
			Memory:         map[string]any{},
		})
		return
	}

	memory := resp.Memory
	if memory == nil {
		memory = map[string]any{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Response:       resp.Text,
		Memory:         memory,
	})
}

func decodeChat(w http.ResponseWriter, r *http.Request) (contractx.TurnRequest, bool) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	var in chatRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Ctx(r.Context()).Warn().Int64("limit", tooLarge.Limit).Msg("chat body too large")
		}
		return contractx.TurnRequest{}, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return contractx.TurnRequest{}, false
	}

	if in.Text == nil || *in.Text == "" || utf8.RuneCountInString(*in.Text) > MaxTextRunes {
		return contractx.TurnRequest{}, false
	}

	req := contractx.TurnRequest{
		ConversationID: DefaultConversationID,
		Role:           contractx.RoleCustomer,
		Text:           *in.Text,
	}
	if in.ConversationID != nil && strings.TrimSpace(*in.ConversationID) != "" {
		req.ConversationID = strings.TrimSpace(*in.ConversationID)
	}
	if in.Role != nil {
		role, err := contractx.ParseRole(*in.Role)
		if err != nil {
			return contractx.TurnRequest{}, false
		}
		req.Role = role
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write json response")
	}
}
