package matches_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobmate/matching-service/internal/matches"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/policy"
	"jobmate/matching-service/internal/store"
)

func newTestMux(t *testing.T, st *fakeStore, gate *fakeGate) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	matches.NewHandler(newService(t, st, gate)).RegisterRoutes(mux)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func TestCandidateToJobsRoute(t *testing.T) {
	st := newFakeStore()
	st.candidates["cand-1"] = seedCandidate()
	st.jobPool = []model.JobPosting{seedJob("job-1")}
	mux := newTestMux(t, st, &fakeGate{})

	req := httptest.NewRequest(http.MethodPost, "/matching/candidate-to-jobs",
		strings.NewReader(`{"candidateId": "cand-1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var gen matches.Generation
	decodeBody(t, rec, &gen)
	if len(gen.Matches) != 1 || gen.Matches[0].JobID != "job-1" {
		t.Errorf("matches = %+v, want one for job-1", gen.Matches)
	}
	if !gen.Persisted {
		t.Error("persisted flag should be set")
	}
}

func TestCandidateToJobsRoute_Validation(t *testing.T) {
	mux := newTestMux(t, newFakeStore(), &fakeGate{})

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing candidateId", `{"limit": 10}`},
		{"blank candidateId", `{"candidateId": ""}`},
		{"malformed json", `{"candidateId": `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/matching/candidate-to-jobs",
				strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCandidateToJobsRoute_UnknownCandidate(t *testing.T) {
	mux := newTestMux(t, newFakeStore(), &fakeGate{})

	req := httptest.NewRequest(http.MethodPost, "/matching/candidate-to-jobs",
		strings.NewReader(`{"candidateId": "nope"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCandidateToJobsRoute_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, newFakeStore(), &fakeGate{})

	req := httptest.NewRequest(http.MethodGet, "/matching/candidate-to-jobs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestJobToCandidatesRoute(t *testing.T) {
	st := newFakeStore()
	st.jobs["job-1"] = seedJob("job-1")
	st.tiers["agency-1"] = "enterprise"
	st.candPool = []model.CandidateProfile{seedCandidate()}
	mux := newTestMux(t, st, &fakeGate{})

	req := httptest.NewRequest(http.MethodPost, "/matching/job-to-candidates",
		strings.NewReader(`{"jobId": "job-1"}`))
	req.Header.Set("x-agency-id", "agency-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var gen matches.Generation
	decodeBody(t, rec, &gen)
	if len(gen.Matches) != 1 || gen.Matches[0].CandidateID != "cand-1" {
		t.Errorf("matches = %+v, want one for cand-1", gen.Matches)
	}
}

func TestJobToCandidatesRoute_MissingAgencyHeader(t *testing.T) {
	mux := newTestMux(t, newFakeStore(), &fakeGate{})

	req := httptest.NewRequest(http.MethodPost, "/matching/job-to-candidates",
		strings.NewReader(`{"jobId": "job-1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJobToCandidatesRoute_RateLimited(t *testing.T) {
	st := newFakeStore()
	st.jobs["job-1"] = seedJob("job-1")
	st.tiers["agency-1"] = "standard"
	next := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	gate := &fakeGate{
		denyJob: true,
		denied:  policy.Decision{Allowed: false, NextAllowedAt: next, Interval: 24 * time.Hour},
	}
	mux := newTestMux(t, st, gate)

	req := httptest.NewRequest(http.MethodPost, "/matching/job-to-candidates",
		strings.NewReader(`{"jobId": "job-1"}`))
	req.Header.Set("x-agency-id", "agency-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	var body struct {
		Error         string `json:"error"`
		NextAllowedAt string `json:"nextAllowedAt"`
		Tier          string `json:"tier"`
		LimitHours    int    `json:"limitHours"`
	}
	decodeBody(t, rec, &body)
	if body.Error != "rate limit exceeded" {
		t.Errorf("error = %q", body.Error)
	}
	if body.NextAllowedAt != next.Format(time.RFC3339) {
		t.Errorf("nextAllowedAt = %q, want %q", body.NextAllowedAt, next.Format(time.RFC3339))
	}
	if body.Tier != "standard" {
		t.Errorf("tier = %q, want standard", body.Tier)
	}
	if body.LimitHours != 24 {
		t.Errorf("limitHours = %d, want 24", body.LimitHours)
	}
}

func TestCachedMatchesRoutes(t *testing.T) {
	st := newFakeStore()
	st.records[recordKey("cand-1", "job-1")] = store.MatchRecord{
		CandidateID: "cand-1", JobID: "job-1", OverallScore: 90, Status: store.StatusPending,
	}
	mux := newTestMux(t, st, &fakeGate{})

	for _, path := range []string{
		"/matching/candidates/cand-1/matches",
		"/matching/jobs/job-1/matches",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		var gen matches.Generation
		decodeBody(t, rec, &gen)
		if !gen.Cached || len(gen.Matches) != 1 {
			t.Errorf("GET %s: gen = %+v, want one cached match", path, gen)
		}
	}
}

func TestCachedMatchesRoute_BadPaths(t *testing.T) {
	mux := newTestMux(t, newFakeStore(), &fakeGate{})

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/matching/candidates/cand-1/matches", http.StatusMethodNotAllowed},
		{http.MethodGet, "/matching/candidates/cand-1", http.StatusNotFound},
		{http.MethodGet, "/matching/candidates/cand-1/history", http.StatusNotFound},
		{http.MethodGet, "/matching/jobs/job-1/matches/extra", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
