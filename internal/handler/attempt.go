package handler

import (
	"net/http"
	"strconv"

	"github.com/prepdeck/backend/internal/ledger"
	"github.com/prepdeck/backend/internal/model"
)

type attemptRequest struct {
	QuestionID   string       `json:"question_id"`
	Subject      string       `json:"subject"`
	Topic        string       `json:"topic"`
	ChosenOption model.Option `json:"chosen_option"`
	WasCorrect   bool         `json:"was_correct"`
	ElapsedMs    int64        `json:"elapsed_ms"`
}

type attemptResponse struct {
	Mastery       int `json:"mastery"`
	TotalAttempts int `json:"total_attempts"`
}

func (h *Handler) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user := model.UserFromContext(r.Context())
	mastery, total, err := h.ledger.RecordAttempt(r.Context(), ledger.AttemptInput{
		UserID:       user.ID,
		QuestionID:   req.QuestionID,
		Subject:      req.Subject,
		Topic:        req.Topic,
		ChosenOption: req.ChosenOption,
		WasCorrect:   req.WasCorrect,
		ElapsedMs:    req.ElapsedMs,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attemptResponse{Mastery: mastery, TotalAttempts: total})
}

// handleProgress returns one entry when subject and topic are given,
// otherwise every entry for the user.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	subject := r.URL.Query().Get("subject")
	topic := r.URL.Query().Get("topic")

	if subject != "" && topic != "" {
		p, err := h.ledger.Progress(r.Context(), user.ID, subject, topic)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
		return
	}

	entries, err := h.ledger.ProgressAll(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if entries == nil {
		entries = []model.ProgressEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.ledger.History(r.Context(), user.ID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []model.HistoryItem{}
	}
	respondJSON(w, http.StatusOK, items)
}
