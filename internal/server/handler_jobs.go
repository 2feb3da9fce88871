package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/pkg/model"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}

	n, err := s.table.Submit(req.Path)
	switch {
	case errors.Is(err, jobtable.ErrEmptyPath):
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing required field",
				model.FieldError{Field: "path", Message: "path is required"}))
		return
	case errors.Is(err, jobtable.ErrPathTooLong):
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid field",
				model.FieldError{Field: "path", Message: err.Error()}))
		return
	case errors.Is(err, jobtable.ErrAdmissionFull):
		respondError(w, reqID, http.StatusServiceUnavailable, &model.APIError{
			Code:    model.ErrUnavailable,
			Message: "admission queue is full, retry later",
		})
		return
	case err != nil:
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("job queued", "path", req.Path, "admission_len", n, "request_id", reqID)
	respondAccepted(w, reqID, model.SubmitResult{Path: req.Path, AdmissionLen: n})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.table.Snapshot())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := chi.URLParam(r, "index")

	idx, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid job index",
				model.FieldError{Field: "index", Message: "must be an integer"}))
		return
	}

	var job *model.Job
	s.table.View(func(t *jobtable.Table) error {
		if j := t.Job(idx); j != nil {
			cp := *j
			job = &cp
		}
		return nil
	})
	if job == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("job", raw))
		return
	}
	respondOK(w, reqID, job)
}
