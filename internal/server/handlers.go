package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
)

type sentence struct {
	ID   models.SentenceID `json:"id"`
	Text string            `json:"text"`
}

type alignmentResponse struct {
	Key       models.PairKey   `json:"key"`
	Revision  int              `json:"revision"`
	Checksum  string           `json:"checksum,omitempty"`
	Edges     []alignment.Edge `json:"edges"`
	Unaligned []sentence       `json:"unaligned"`
}

// pairKey reads {paper}/{v1}/{v2}. Paper ids containing a slash arrive path-escaped.
func pairKey(r *http.Request) (models.PairKey, error) {
	paper, err := url.PathUnescape(chi.URLParam(r, "paper"))
	if err != nil {
		return models.PairKey{}, errors.New("invalid paper id")
	}
	v1, err := strconv.Atoi(chi.URLParam(r, "v1"))
	if err != nil {
		return models.PairKey{}, errors.New("invalid version1")
	}
	v2, err := strconv.Atoi(chi.URLParam(r, "v2"))
	if err != nil {
		return models.PairKey{}, errors.New("invalid version2")
	}
	return models.PairKey{PaperID: paper, Version1: v1, Version2: v2}, nil
}

func (s *Server) handleGetAlignment(w http.ResponseWriter, r *http.Request) {
	key, err := pairKey(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	var (
		a   *alignment.Alignment
		rev storage.Revision
	)
	if q := r.URL.Query().Get("revision"); q != "" {
		n, perr := strconv.Atoi(q)
		if perr != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "invalid revision")
			return
		}
		a, err = s.pipeline.LoadRevision(ctx, key, n)
		rev.Number = n
	} else {
		a, rev, err = s.pipeline.Load(ctx, key)
	}
	if err != nil {
		s.respondLookupError(w, key, err)
		return
	}
	s.respondJSON(w, http.StatusOK, alignmentResponse{
		Key:       key,
		Revision:  rev.Number,
		Checksum:  rev.Checksum,
		Edges:     a.Edges(),
		Unaligned: s.unaligned(a),
	})
}

func (s *Server) handleUnaligned(w http.ResponseWriter, r *http.Request) {
	key, err := pairKey(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, _, err := s.pipeline.Load(r.Context(), key)
	if err != nil {
		s.respondLookupError(w, key, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "unaligned": s.unaligned(a)})
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	key, err := pairKey(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	revs, err := s.pipeline.Revisions(r.Context(), key)
	if err != nil {
		s.respondLookupError(w, key, err)
		return
	}
	if len(revs) == 0 {
		s.respondError(w, http.StatusNotFound, "alignment not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "revisions": revs})
}

func (s *Server) unaligned(a *alignment.Alignment) []sentence {
	boring := s.pipeline.Boring(a)
	out := []sentence{}
	for _, v := range []int{a.Key.Version1, a.Key.Version2} {
		for _, id := range a.Sentences(v) {
			if _, skip := boring[id]; skip || a.IsAligned(id) {
				continue
			}
			text, _ := a.Text(id)
			out = append(out, sentence{ID: id, Text: text})
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sentenceCount, err := s.storage.CountSentences(ctx)
	if err != nil {
		s.logger.Error("status: count sentences failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snapshotCount, err := s.storage.CountSnapshots(ctx)
	if err != nil {
		s.logger.Error("status: count snapshots failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"sentences": sentenceCount,
		"snapshots": snapshotCount,
	}

	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"database_path":    s.config.Storage.DatabasePath,
			"snapshot_backend": s.config.Storage.SnapshotBackend,
			"review_dir":       s.config.Storage.ReviewDir,
			"termfreq_backend": s.config.TermFreq.Backend,
			"diff_strategy":    s.config.Diff.Strategy,
			"dp_enabled":       s.config.DP.Enabled,
			"review_format":    s.config.Review.Format,
		}
		paths := []string{s.config.Storage.DatabasePath, s.config.Storage.ReviewDir}
		if s.config.Storage.SnapshotBackend == "disk" {
			paths = append(paths, s.config.Storage.SnapshotDir)
		}
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondLookupError(w http.ResponseWriter, key models.PairKey, err error) {
	switch {
	case errors.Is(err, models.ErrOrdering):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrSnapshotNotFound):
		s.respondError(w, http.StatusNotFound, "alignment not found")
	default:
		s.logger.Error("alignment lookup failed", zap.String("key", key.String()), zap.Error(err))
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
