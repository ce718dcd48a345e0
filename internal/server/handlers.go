package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/canonical"
	"github.com/talentmatch/talentmatch/internal/config"
	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/profile"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/storage"
	"github.com/talentmatch/talentmatch/internal/vector"
)

// maxUploadBytes caps the size of an uploaded CV file.
const maxUploadBytes = 20 << 20

func (s *Server) handleUpsertCandidate(w http.ResponseWriter, r *http.Request) {
	var profile models.CandidateProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created := profile.ID == ""
	if created {
		profile.ID = uuid.New().String()
	}
	s.logger.Debug("upsert candidate request", zap.String("id", profile.ID))
	if err := s.engine.UpsertCandidate(r.Context(), &profile); err != nil {
		s.respondDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, map[string]string{"id": profile.ID, "status": "indexed"})
}

// handleUploadCandidate ingests a CV file posted as multipart form data under
// the "file" field. The text is extracted, parsed into a profile, and indexed.
func (s *Server) handleUploadCandidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	text, err := s.extractor.ExtractBytes(content, ext)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	prof, err := s.parser.Parse(text, header.Filename)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.logger.Info("CV uploaded",
		zap.String("filename", header.Filename),
		zap.String("id", prof.ID))
	if err := s.engine.UpsertCandidate(r.Context(), prof); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{
		"id":       prof.ID,
		"filename": header.Filename,
		"status":   "indexed",
	})
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	profile, err := s.storage.GetCandidate(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

// handleCandidateSummary returns an extractive summary of the candidate's CV.
// The sentences query parameter bounds the summary length (1 to 10, default 3).
func (s *Server) handleCandidateSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prof, err := s.storage.GetCandidate(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	sentences, _ := strconv.Atoi(r.URL.Query().Get("sentences"))
	if sentences < 1 || sentences > 10 {
		sentences = 0
	}
	summary, err := profile.Summarize(prof, sentences)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidate_id": id,
		"summary":      summary,
	})
}

func (s *Server) handleCandidateRecommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prof, err := s.storage.GetCandidate(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	recs := profile.Recommendations(prof)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidate_id":    id,
		"recommendations": recs,
		"total":           len(recs),
	})
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	offset, limit := paginationParams(r)
	profiles, err := s.storage.ListCandidates(r.Context(), offset, limit)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	total, err := s.storage.CountCandidates(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": profiles,
		"total":      total,
		"offset":     offset,
		"limit":      limit,
	})
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete candidate request", zap.String("id", id))
	if err := s.engine.RemoveCandidate(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleUpsertPosting(w http.ResponseWriter, r *http.Request) {
	var posting models.JobPosting
	if err := json.NewDecoder(r.Body).Decode(&posting); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created := posting.ID == ""
	if created {
		posting.ID = uuid.New().String()
	}
	s.logger.Debug("upsert posting request", zap.String("id", posting.ID), zap.String("title", posting.Title))
	if err := s.engine.UpsertPosting(r.Context(), &posting); err != nil {
		s.respondDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, map[string]string{"id": posting.ID, "status": "indexed"})
}

func (s *Server) handleGetPosting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	posting, err := s.storage.GetPosting(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, posting)
}

func (s *Server) handleListPostings(w http.ResponseWriter, r *http.Request) {
	offset, limit := paginationParams(r)
	postings, err := s.storage.ListPostings(r.Context(), offset, limit)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	total, err := s.storage.CountPostings(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"postings": postings,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func (s *Server) handleDeletePosting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete posting request", zap.String("id", id))
	if err := s.engine.RemovePosting(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("match request",
		zap.String("kind", string(req.Kind)),
		zap.String("entity_id", req.EntityID),
		zap.Int("top_k", req.TopK))
	response, err := s.engine.Match(r.Context(), &req)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type searchRequest struct {
	Kind models.EntityKind `json:"kind"`
	Text string            `json:"text"`
	TopK int               `json:"top_k,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	hits, err := s.engine.SearchText(r.Context(), req.Kind, req.Text, req.TopK)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": hits,
		"total":   len(hits),
	})
}

type pairwiseRequest struct {
	CandidateID string `json:"candidate_id"`
	PostingID   string `json:"posting_id"`
}

func (s *Server) handlePairwiseScore(w http.ResponseWriter, r *http.Request) {
	var req pairwiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CandidateID == "" || req.PostingID == "" {
		s.respondError(w, http.StatusBadRequest, "candidate_id and posting_id are required")
		return
	}
	result, err := s.engine.PairwiseScore(r.Context(), req.CandidateID, req.PostingID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("reindex requested")
	report, err := s.engine.Reindex(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSaveSnapshots(w http.ResponseWriter, r *http.Request) {
	err := s.engine.SaveSnapshots(
		s.config.Storage.CandidateIndexPath,
		s.config.Storage.PostingIndexPath,
	)
	if err != nil {
		s.logger.Error("snapshot save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleLoadSnapshots(w http.ResponseWriter, r *http.Request) {
	err := s.engine.LoadSnapshots(
		s.config.Storage.CandidateIndexPath,
		s.config.Storage.PostingIndexPath,
	)
	if err != nil {
		s.logger.Error("snapshot load failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	resp := map[string]interface{}{
		"candidates":           stats.Candidates,
		"postings":             stats.Postings,
		"candidate_index_size": stats.CandidateIndexSize,
		"posting_index_size":   stats.PostingIndexSize,
		"uptime_seconds":       stats.UptimeSeconds,
	}

	configInfo := map[string]interface{}{
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"database_path":        s.config.Storage.DatabasePath,
		"candidate_index_path": s.config.Storage.CandidateIndexPath,
		"posting_index_path":   s.config.Storage.PostingIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.CandidateIndexPath,
		s.config.Storage.PostingIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyticsReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.Build(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		s.respondJSON(w, http.StatusOK, report)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="talentmatch-report.xlsx"`)
	if err := report.WriteXLSX(w); err != nil {
		s.logger.Error("report export failed", zap.Error(err))
	}
}

func (s *Server) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Scorer().Weights())
}

func (s *Server) handlePutParameters(w http.ResponseWriter, r *http.Request) {
	var weights scoring.Weights
	if err := json.NewDecoder(r.Body).Decode(&weights); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetWeights(weights); err != nil {
		s.respondDomainError(w, err)
		return
	}
	if s.configPath != "" {
		s.configMu.Lock()
		s.config.Matching.Weights = weights
		err := config.Save(s.configPath, s.config)
		s.configMu.Unlock()
		if err != nil {
			s.logger.Warn("failed to persist matching weights", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, weights)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// paginationParams reads offset and limit query parameters with sane bounds.
func paginationParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return offset, limit
}

// respondDomainError maps domain errors to HTTP status codes.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrBadRequest),
		errors.Is(err, scoring.ErrInvalidWeights),
		errors.Is(err, canonical.ErrEmptyDocument),
		errors.Is(err, profile.ErrNoText):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vector.ErrIndexNotReady):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, embedding.ErrVectorization):
		s.logger.Error("vectorization failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
