package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Server) CreateNarrative(c *gin.Context) {
	var n model.TrameNarrative
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateNarrative(c.Request.Context(), &n); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) GetNarrative(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	n, err := s.Store.GetNarrative(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) UpdateNarrative(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var n model.TrameNarrative
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	n.ID = id
	if err := s.Store.UpdateNarrative(c.Request.Context(), &n); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// SetNarrativeEvidence goes through the exhibit mediator so every evidence
// mutation refreshes the registries of containing cases.
func (s *Server) SetNarrativeEvidence(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Kind model.EvidenceKind `json:"kind"`
		IDs  []int64            `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Notifier.SetNarrativeEvidence(c.Request.Context(), id, req.Kind, req.IDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) SetNarrativeTargets(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		StatementIDs []int64 `json:"statement_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SetNarrativeTargets(c.Request.Context(), id, req.StatementIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) GetNarrativeTimeline(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	items, err := s.Engine.ChronologicalEvidence(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": items})
}

func (s *Server) GetNarrativeSources(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	docs, err := s.Engine.SourceDocuments(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": docs})
}

func (s *Server) AnalyzeNarrative(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	analysis, err := s.Orchestrator.AnalyzeNarrative(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) CreateCase(c *gin.Context) {
	var lc model.LegalCase
	if err := c.ShouldBindJSON(&lc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateCase(c.Request.Context(), &lc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lc)
}

func (s *Server) GetCase(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	lc, err := s.Store.GetCase(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	contestations, err := s.Store.ListContestationsByCase(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": lc, "contestations": contestations})
}

func (s *Server) CandidateStatements(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	statements, err := s.Store.CandidateStatements(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": statements})
}

func (s *Server) RefreshExhibits(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	created, err := s.Registry.RefreshCase(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (s *Server) ListExhibits(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	entries, err := s.Store.ListExhibits(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exhibits": entries})
}

// ExportCase streams the case DOCX. The file is built in the media root's
// exports directory and kept for later download.
func (s *Server) ExportCase(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	dir := filepath.Join(s.Config.Media.Root, "exports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fail(c, err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("dossier_%d.docx", id))
	if err := s.Exporter.WriteCaseFile(c.Request.Context(), id, path); err != nil {
		fail(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) CreateContestation(c *gin.Context) {
	var pc model.PerjuryContestation
	if err := c.ShouldBindJSON(&pc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateContestation(c.Request.Context(), &pc); err != nil {
		fail(c, err)
		return
	}
	// New narrative links may register new exhibits.
	if _, err := s.Registry.RefreshCase(c.Request.Context(), pc.CaseID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pc)
}

func (s *Server) GetContestation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	pc, err := s.Store.GetContestation(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (s *Server) UpdateContestationSections(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var pc model.PerjuryContestation
	if err := c.ShouldBindJSON(&pc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	pc.ID = id
	if err := s.Store.UpdateContestationSections(c.Request.Context(), &pc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) SetContestationTargets(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		StatementIDs []int64 `json:"statement_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SetContestationTargets(c.Request.Context(), id, req.StatementIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) SetContestationNarratives(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		NarrativeIDs []int64 `json:"narrative_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Notifier.SetContestationNarratives(c.Request.Context(), id, req.NarrativeIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeleteContestation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteContestation(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) PreviewDossier(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	dossier, err := s.Orchestrator.BuildDossier(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dossier": dossier})
}

func (s *Server) GenerateSuggestion(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sug, err := s.Orchestrator.GenerateSuggestion(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sug)
}

func (s *Server) GeneratePoliceReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sug, report, err := s.Orchestrator.GeneratePoliceReport(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"suggestion": sug, "report": report})
}

func (s *Server) ListSuggestions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	out, err := s.Store.ListSuggestions(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

func (s *Server) RetryParse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sug, err := s.Orchestrator.RetryParse(c.Request.Context(), id)
	if err != nil {
		if sug != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "suggestion": sug})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sug)
}
