package server

import (
	"errors"
	"fmt"
	"net/http"

	"ragquery/internal/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := s.validator.DecodeQuery(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			WriteError(w, http.StatusBadRequest, domain.CodeValidationError,
				fmt.Sprintf("Request validation failed: %d error(s)", len(verr.Fields)), verr.Details())
			return
		}
		s.writeInternalError(w, r, err)
		return
	}

	resp, err := s.queries.Execute(r.Context(), req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var retrievalErr *domain.RetrievalError
	var synthErr *domain.SynthesisError

	switch {
	case errors.As(err, &retrievalErr):
		WriteError(w, http.StatusServiceUnavailable, domain.CodeRetrievalFailed,
			"Failed to retrieve knowledge base content: "+retrievalErr.Err.Error(), nil)
	case errors.As(err, &synthErr):
		WriteError(w, http.StatusServiceUnavailable, domain.CodeSynthesisFailed,
			"Failed to synthesize answer: "+synthErr.Err.Error(), nil)
	default:
		s.writeInternalError(w, r, err)
	}
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().
		Str("request_id", RequestID(r.Context())).
		Err(err).
		Msg("unhandled query error")
	WriteError(w, http.StatusInternalServerError, codeInternalError, "Internal server error", nil)
}

type healthResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Size()
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, domain.CodeRetrievalFailed,
			"Failed to retrieve knowledge base content: "+err.Error(), nil)
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Chunks: n})
}
