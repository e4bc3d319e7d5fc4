// HTTP transport for the matching service.
//
// Routes:
//
//	POST /matching/candidate-to-jobs            → generate matches for a candidate
//	POST /matching/job-to-candidates            → generate matches for a job (tier-gated)
//	GET  /matching/candidates/{id}/matches      → cached matches for a candidate
//	GET  /matching/jobs/{id}/matches            → cached matches for a job
//
// The job-to-candidates route expects an x-agency-id header forwarded by the
// gateway; the agency's subscription tier drives the rate limit.
package matches

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Handler holds shared dependencies.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all matching routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/matching/candidate-to-jobs", h.handleCandidateToJobs)
	mux.HandleFunc("/matching/job-to-candidates", h.handleJobToCandidates)
	mux.HandleFunc("/matching/candidates/", h.handleCachedCandidate)
	mux.HandleFunc("/matching/jobs/", h.handleCachedJob)
}

// ─── Generation routes ───────────────────────────────────────────────────────

func (h *Handler) handleCandidateToJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		CandidateID string `json:"candidateId"`
		Limit       int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CandidateID == "" {
		jsonError(w, "body must contain candidateId", http.StatusBadRequest)
		return
	}

	gen, err := h.svc.GenerateForCandidate(r.Context(), body.CandidateID, body.Limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, gen)
}

func (h *Handler) handleJobToCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agencyID := r.Header.Get("x-agency-id")
	if agencyID == "" {
		jsonError(w, "missing x-agency-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		JobID string `json:"jobId"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.JobID == "" {
		jsonError(w, "body must contain jobId", http.StatusBadRequest)
		return
	}

	gen, err := h.svc.GenerateForJob(r.Context(), body.JobID, agencyID, body.Limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, gen)
}

// ─── Cached read routes ──────────────────────────────────────────────────────

// handleCachedCandidate handles GET /matching/candidates/{id}/matches
func (h *Handler) handleCachedCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := matchesPathID(w, r, "candidates")
	if !ok {
		return
	}
	gen, err := h.svc.CachedCandidateMatches(r.Context(), id, 0)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, gen)
}

// handleCachedJob handles GET /matching/jobs/{id}/matches
func (h *Handler) handleCachedJob(w http.ResponseWriter, r *http.Request) {
	id, ok := matchesPathID(w, r, "jobs")
	if !ok {
		return
	}
	gen, err := h.svc.CachedJobMatches(r.Context(), id, 0)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	jsonOK(w, gen)
}

// matchesPathID parses /matching/{kind}/{id}/matches and enforces GET.
func matchesPathID(w http.ResponseWriter, r *http.Request, kind string) (string, bool) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "matching" || parts[1] != kind || parts[3] != "matches" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return "", false
	}
	if parts[2] == "" {
		jsonError(w, fmt.Sprintf("missing %s id", kind), http.StatusBadRequest)
		return "", false
	}
	return parts[2], true
}

// ─── Error mapping ───────────────────────────────────────────────────────────

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var rl *RateLimitError
	switch {
	case errors.Is(err, ErrCandidateNotFound):
		jsonError(w, "candidate not found", http.StatusNotFound)
	case errors.Is(err, ErrJobNotFound):
		jsonError(w, "job not found", http.StatusNotFound)
	case errors.As(err, &rl):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error":         "rate limit exceeded",
			"nextAllowedAt": rl.NextAllowedAt.UTC().Format(time.RFC3339),
			"tier":          rl.Tier,
			"limitHours":    rl.LimitHours,
		})
	default:
		log.Printf("[matching] request failed: %v", err)
		jsonError(w, "failed to generate matches", http.StatusInternalServerError)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
