package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/analytics"
	"github.com/talentmatch/talentmatch/internal/config"
	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/storage"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.NewEngine(store, embedding.NewMockEmbedder(32), scorer, engine.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080},
		Storage: config.StorageConfig{
			DatabasePath:       filepath.Join(dir, "db.sqlite"),
			CandidateIndexPath: filepath.Join(dir, "candidates.idx"),
			PostingIndexPath:   filepath.Join(dir, "postings.idx"),
		},
	}
	srv := NewServer(eng, store, analytics.NewReporter(store, 10), cfg, zap.NewNop())
	return srv, srv.router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func serverCandidate(id string, skills ...string) *models.CandidateProfile {
	return &models.CandidateProfile{
		ID:           id,
		PersonalInfo: models.PersonalInfo{Name: "Test Person"},
		Skills:       skills,
		Experience: []models.Experience{
			{Position: "Engineer", Company: "Acme"},
		},
		Education: []models.Education{
			{Institution: "State University", Degree: "Bachelor of Science"},
		},
	}
}

func serverPosting(id string, skills ...string) *models.JobPosting {
	return &models.JobPosting{
		ID:             id,
		Title:          "Backend Engineer",
		Company:        "Acme",
		Description:    "Build and operate backend services",
		RequiredSkills: skills,
	}
}

func TestHandleUpsertAndGetCandidate(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go", "sql"))
	if w.Code != http.StatusOK {
		t.Fatalf("upsert status: got %d, body: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/candidates/cv-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: got %d", w.Code)
	}
	var got models.CandidateProfile
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "cv-1" || len(got.Skills) != 2 {
		t.Errorf("candidate: got %+v", got)
	}
	if got.Status != models.CandidateStatusProcessed {
		t.Errorf("status: got %q", got.Status)
	}
}

func TestHandleUpsertCandidate_GeneratesID(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("", "go"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", w.Code)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestHandleGetCandidate_NotFound(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/v1/candidates/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleDeleteCandidate(t *testing.T) {
	_, h := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))
	w := doJSON(t, h, http.MethodDelete, "/api/v1/candidates/cv-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/v1/candidates/cv-1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", w.Code)
	}
}

func TestHandleListCandidates(t *testing.T) {
	_, h := newTestServer(t)
	for _, id := range []string{"cv-1", "cv-2", "cv-3"} {
		doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate(id, "go"))
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/candidates?offset=0&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Candidates []*models.CandidateProfile `json:"candidates"`
		Total      int64                      `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Candidates) != 2 {
		t.Errorf("page size: got %d, want 2", len(out.Candidates))
	}
	if out.Total != 3 {
		t.Errorf("total: got %d, want 3", out.Total)
	}
}

func TestHandleMatch(t *testing.T) {
	_, h := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-go", "go", "sql"))
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-py", "python"))
	doJSON(t, h, http.MethodPost, "/api/v1/postings", serverPosting("job-1", "go", "sql"))

	w := doJSON(t, h, http.MethodPost, "/api/v1/match", models.MatchRequest{
		Kind:     models.KindCandidate,
		EntityID: "job-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.MatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total: got %d, want 2", resp.Total)
	}
	if resp.Results[0].EntityID != "cv-go" {
		t.Errorf("top result: got %s, want cv-go", resp.Results[0].EntityID)
	}
}

func TestHandleMatch_UnknownKind(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/v1/match", map[string]string{"kind": "resume"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleMatch_EmptyIndex(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/v1/match", models.MatchRequest{
		Kind:    models.KindCandidate,
		Posting: serverPosting("job-x", "go"),
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleSearchText(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	w := doJSON(t, h, http.MethodPost, "/api/v1/match/search", map[string]interface{}{
		"kind": "candidate", "text": "go engineer", "top_k": 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []engine.SimilarHit `json:"results"`
		Total   int                 `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Results[0].EntityID != "cv-1" {
		t.Errorf("results: got %+v", out)
	}
}

func TestHandleSearchText_MissingText(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/v1/match/search", map[string]string{"kind": "candidate"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandlePairwiseScore(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go", "sql"))
	doJSON(t, h, http.MethodPost, "/api/v1/postings", serverPosting("job-1", "go", "sql"))

	w := doJSON(t, h, http.MethodPost, "/api/v1/match/score", pairwiseRequest{
		CandidateID: "cv-1", PostingID: "job-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var res models.MatchResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Breakdown.SkillsScore != 1.0 {
		t.Errorf("skills score: got %f, want 1.0", res.Breakdown.SkillsScore)
	}
}

func TestHandleReindex(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))
	doJSON(t, h, http.MethodPost, "/api/v1/postings", serverPosting("job-1", "go"))

	w := doJSON(t, h, http.MethodPost, "/api/v1/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var report engine.ReindexReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Candidates != 1 || report.Postings != 1 {
		t.Errorf("report: %+v", report)
	}
}

func TestHandleSnapshots(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	w := doJSON(t, h, http.MethodPost, "/api/v1/snapshots/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save status: got %d, body: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/snapshots/load", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status: got %d, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleStatistics(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	w := doJSON(t, h, http.MethodGet, "/api/v1/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var stats engine.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Candidates != 1 || stats.CandidateIndexSize != 1 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestHandleStatus(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	w := doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Candidates     int64  `json:"candidates"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Candidates != 1 {
		t.Errorf("candidates: got %d, want 1", out.Candidates)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Error("expected disk_usage_bytes in response")
	}
}

func TestHandleParameters(t *testing.T) {
	srv, h := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/api/v1/admin/parameters", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: got %d", w.Code)
	}
	var weights scoring.Weights
	if err := json.NewDecoder(w.Body).Decode(&weights); err != nil {
		t.Fatal(err)
	}
	if weights != scoring.DefaultWeights() {
		t.Errorf("weights: got %+v", weights)
	}

	updated := scoring.Weights{Skills: 0.5, Experience: 0.2, Education: 0.2, Similarity: 0.1, ExperienceTarget: 5}
	w = doJSON(t, h, http.MethodPut, "/api/v1/admin/parameters", updated)
	if w.Code != http.StatusOK {
		t.Fatalf("put status: got %d, body: %s", w.Code, w.Body.String())
	}
	if got := srv.engine.Scorer().Weights(); got != updated {
		t.Errorf("weights after update: got %+v", got)
	}
}

func TestHandlePutParameters_Invalid(t *testing.T) {
	_, h := newTestServer(t)
	bad := scoring.Weights{Skills: 0.5, Experience: 0.5, Education: 0.5, Similarity: 0.5}
	w := doJSON(t, h, http.MethodPut, "/api/v1/admin/parameters", bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAnalyticsReport_JSON(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go", "sql"))

	w := doJSON(t, h, http.MethodGet, "/api/v1/analytics/report?format=json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var report analytics.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Candidates != 1 {
		t.Errorf("candidates: got %d, want 1", report.Candidates)
	}
}

func TestHandleAnalyticsReport_XLSX(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/report", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type: got %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func uploadCV(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleUploadCandidate(t *testing.T) {
	_, h := newTestServer(t)

	cv := "Jane Doe\njane@example.com\n\nSkills: Go, SQL, Docker\n\nExperience\nBackend Engineer at Acme\n\nEducation\nBachelor of Science, State University, 2015\n"
	w := uploadCV(t, h, "jane.txt", cv)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["id"] == "" {
		t.Fatal("expected generated id")
	}
	if resp["filename"] != "jane.txt" {
		t.Errorf("filename: got %q", resp["filename"])
	}

	g := doJSON(t, h, http.MethodGet, "/api/v1/candidates/"+resp["id"], nil)
	if g.Code != http.StatusOK {
		t.Fatalf("get status: got %d", g.Code)
	}
	var got models.CandidateProfile
	if err := json.NewDecoder(g.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Skills) == 0 {
		t.Error("expected skills parsed from CV text")
	}
	if got.Filename != "jane.txt" {
		t.Errorf("filename: got %q", got.Filename)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/candidates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status: got %d", w.Code)
	}
}

func TestHandleUploadCandidate_MissingFile(t *testing.T) {
	_, h := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/upload", bytes.NewBufferString("not multipart"))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleUploadCandidate_EmptyText(t *testing.T) {
	_, h := newTestServer(t)
	w := uploadCV(t, h, "empty.txt", "   \n\t  ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleCandidateSummary(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go", "sql"))

	w := doJSON(t, h, http.MethodGet, "/api/v1/candidates/cv-1/summary?sentences=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		CandidateID string `json:"candidate_id"`
		Summary     struct {
			Text          string   `json:"summary"`
			Sentences     []string `json:"sentences"`
			Method        string   `json:"method"`
			SummaryLength int      `json:"summary_length"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.CandidateID != "cv-1" {
		t.Errorf("candidate_id: got %q", out.CandidateID)
	}
	if out.Summary.Text == "" || out.Summary.SummaryLength > 2 {
		t.Errorf("summary: got %+v", out.Summary)
	}
}

func TestHandleCandidateSummary_NotFound(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/v1/candidates/missing/summary", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleCandidateRecommendations(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/v1/candidates", serverCandidate("cv-1", "go"))

	w := doJSON(t, h, http.MethodGet, "/api/v1/candidates/cv-1/recommendations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Recommendations []string `json:"recommendations"`
		Total           int      `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// One skill and no email leave obvious gaps to flag.
	if out.Total == 0 || len(out.Recommendations) != out.Total {
		t.Errorf("recommendations: got %+v", out)
	}
}
