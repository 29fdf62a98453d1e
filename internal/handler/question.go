package handler

import (
	"net/http"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/catalog"
)

type fetchRequest struct {
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	UnitFrom   int    `json:"unit_from"`
	UnitTo     int    `json:"unit_to"`
	ForceFresh bool   `json:"force_fresh"`
}

type fetchResponse struct {
	Question        any    `json:"question"`
	Topic           string `json:"topic"`
	ServedFromCache bool   `json:"served_from_cache"`
}

// handleFetchQuestion resolves the topic selection to one concrete unit
// and asks the cache for a question on it. The resolved topic is echoed
// back so the client can attribute the attempt to the right unit.
func (h *Handler) handleFetchQuestion(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Subject == "" {
		respondError(w, &apperr.ValidationError{Field: "subject", Reason: "required"})
		return
	}

	topic, err := catalog.ResolveTopic(req.Subject, req.Topic, req.UnitFrom, req.UnitTo)
	if err != nil {
		respondError(w, err)
		return
	}

	q, cached, err := h.cache.Fetch(r.Context(), req.Subject, topic, req.ForceFresh)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fetchResponse{Question: q, Topic: topic, ServedFromCache: cached})
}

type primeRequest struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

func (h *Handler) handlePrime(w http.ResponseWriter, r *http.Request) {
	var req primeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Subject == "" || req.Topic == "" {
		respondError(w, &apperr.ValidationError{Field: "subject", Reason: "subject and topic are required"})
		return
	}

	q, err := h.cache.Prime(r.Context(), req.Subject, req.Topic)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	topic := r.URL.Query().Get("topic")
	if subject == "" || topic == "" {
		respondError(w, &apperr.ValidationError{Field: "subject", Reason: "subject and topic are required"})
		return
	}

	h.cache.Invalidate(subject, topic)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.Stats())
}

type listQuestionsResponse struct {
	IDs []string `json:"ids"`
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.blobs.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listQuestionsResponse{IDs: ids})
}
