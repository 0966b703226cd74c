package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
)

// StartRequest is the body of POST /api/{tool}/start.
type StartRequest struct {
	EstablishmentID  string   `json:"establishment_id"`
	CategoryIDs      []string `json:"category_ids,omitempty"`
	TargetCategoryID string   `json:"target_category_id,omitempty"`
	IncludeOutside   bool     `json:"include_outside,omitempty"`
	CustomPrompt     string   `json:"custom_prompt,omitempty"`
	DryRun           bool     `json:"dry_run,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStart(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		if req.EstablishmentID == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("establishment_id is required"))
			return
		}

		var rc *automation.RunContext
		var err error
		switch kind {
		case automation.KindRenamer:
			rc, err = s.svc.StartRename(r.Context(), automation.RenameParams{
				EstablishmentID: req.EstablishmentID,
				CategoryIDs:     req.CategoryIDs,
				CustomPrompt:    req.CustomPrompt,
				DryRun:          req.DryRun,
			})
		case automation.KindCategorizer:
			rc, err = s.svc.StartCategorize(r.Context(), automation.CategorizeParams{
				EstablishmentID: req.EstablishmentID,
				CategoryIDs:     req.CategoryIDs,
				CustomPrompt:    req.CustomPrompt,
				DryRun:          req.DryRun,
			})
		case automation.KindTargeted:
			rc, err = s.svc.StartTargeted(r.Context(), automation.TargetedParams{
				EstablishmentID:  req.EstablishmentID,
				TargetCategoryID: req.TargetCategoryID,
				IncludeOutside:   req.IncludeOutside,
				CustomPrompt:     req.CustomPrompt,
				DryRun:           req.DryRun,
			})
		}

		switch {
		case errors.Is(err, automation.ErrRunActive):
			s.writeError(w, http.StatusConflict, err)
		case errors.Is(err, automation.ErrNoProducts):
			s.writeJSON(w, http.StatusOK, map[string]string{"message": "nenhum produto para processar"})
		case err != nil:
			s.writeError(w, http.StatusInternalServerError, err)
		default:
			s.writeJSON(w, http.StatusAccepted, rc.Status())
		}
	}
}

func (s *Server) handleStop(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stopped := s.svc.Stop(kind)
		s.writeJSON(w, http.StatusOK, map[string]bool{"stopping": stopped})
	}
}

func (s *Server) handleStatus(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := s.svc.Registry().Get(kind)
		if rc == nil {
			s.writeJSON(w, http.StatusOK, map[string]any{"state": "idle"})
			return
		}
		s.writeJSON(w, http.StatusOK, rc.Status())
	}
}

func (s *Server) handleLogs(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := s.svc.Registry().Get(kind)
		if rc == nil {
			s.writeJSON(w, http.StatusOK, []automation.LogEntry{})
			return
		}
		s.writeJSON(w, http.StatusOK, rc.Logs())
	}
}

func (s *Server) handleUndo(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reverted, failed, err := s.svc.Rollback(r.Context(), kind)
		if errors.Is(err, automation.ErrUndoWhileRunning) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"reverted": reverted, "failed": failed})
	}
}

func (s *Server) handleUndoInfo(kind automation.RunKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.svc.Undo().Info(kind))
	}
}

// promptTool normalizes the URL segment onto the stored tool key, so
// "categorizer-targeted" addresses the "categorizer_targeted" prompt.
func promptTool(r *http.Request) string {
	return strings.ReplaceAll(r.PathValue("tool"), "-", "_")
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	tool := promptTool(r)
	if automation.DefaultPrompt(tool) == "" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown tool %q", tool))
		return
	}

	stored, err := s.prompts.GetPrompt(r.Context(), tool)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tool":    tool,
		"default": automation.DefaultPrompt(tool),
		"custom":  stored,
	})
}

// PromptRequest is the body of PUT /api/prompts/{tool}.
type PromptRequest struct {
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleSavePrompt(w http.ResponseWriter, r *http.Request) {
	tool := promptTool(r)
	if automation.DefaultPrompt(tool) == "" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown tool %q", tool))
		return
	}

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.prompts.SavePrompt(r.Context(), tool, req.Prompt, req.Description); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"tool": tool, "status": "saved"})
}

func (s *Server) handleUsageToday(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.usage.Today(r.Context()))
}
