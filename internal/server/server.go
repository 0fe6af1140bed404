// Package server exposes the dossier builder over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
	"github.com/LPDavidbdeb/court-sub000/internal/contest"
	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/export"
	"github.com/LPDavidbdeb/court-sub000/internal/ingest/chat"
	"github.com/LPDavidbdeb/court-sub000/internal/ingest/eml"
	photoingest "github.com/LPDavidbdeb/court-sub000/internal/ingest/photo"
	"github.com/LPDavidbdeb/court-sub000/internal/library"
	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/protagonist"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

type Server struct {
	Config       *config.Config
	Store        *store.Store
	Reconciler   *protagonist.Reconciler
	Tree         *library.Tree
	Engine       *narrative.Engine
	Registry     *exhibit.Registry
	Notifier     *exhibit.Notifier
	Orchestrator *contest.Orchestrator
	Analyzer     *llm.Analyzer
	EmlImporter  *eml.Importer
	ChatImporter *chat.Importer
	Photos       *photoingest.Processor
	Exporter     *export.Builder
}

func NewServer(cfg *config.Config) *Server {
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	client, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	personas := llm.NewPersonas(cfg.Personas)

	reconciler := protagonist.NewReconciler(s)
	engine := narrative.NewEngine(s)
	registry := exhibit.NewRegistry(s)

	return &Server{
		Config:       cfg,
		Store:        s,
		Reconciler:   reconciler,
		Tree:         library.NewTree(s),
		Engine:       engine,
		Registry:     registry,
		Notifier:     exhibit.NewNotifier(s, registry),
		Orchestrator: contest.NewOrchestrator(s, engine, registry, client, personas),
		Analyzer:     llm.NewAnalyzer(client, personas, s, cfg.Media.Root),
		EmlImporter:  eml.NewImporter(s, reconciler, cfg.Media.Root),
		ChatImporter: chat.NewImporter(s, reconciler),
		Photos:       photoingest.NewProcessor(s, cfg.Media.Root),
		Exporter:     export.NewBuilder(s, registry, cfg.Media.Root),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/protagonists", s.ListProtagonists)
	r.POST("/protagonists", s.CreateProtagonist)
	r.POST("/protagonists/merge", s.MergeProtagonists)

	r.POST("/emails/upload", s.UploadEml)
	r.GET("/emails/:id", s.GetEmail)
	r.POST("/emails/sync", s.SyncGmail)
	r.POST("/email-threads/:threadID/delta", s.SyncThreadDelta)
	r.POST("/email-quotes", s.CreateEmailQuote)
	r.PUT("/email-quotes/:id", s.UpdateEmailQuote)
	r.DELETE("/email-quotes/:id", s.DeleteEmailQuote)

	r.POST("/pdf-documents", s.UploadPDF)
	r.GET("/pdf-documents/:id", s.GetPDFDocument)
	r.POST("/pdf-documents/:id/analyze", s.AnalyzePDF)
	r.POST("/pdf-quotes", s.CreatePDFQuote)
	r.PUT("/pdf-quotes/:id", s.UpdatePDFQuote)
	r.DELETE("/pdf-quotes/:id", s.DeletePDFQuote)

	r.POST("/photos/import", s.ImportPhotos)
	r.POST("/photo-documents", s.CreatePhotoDocument)
	r.GET("/photo-documents/:id", s.GetPhotoDocument)
	r.POST("/photo-documents/:id/analyze", s.AnalyzePhotoDocument)

	r.POST("/chat/import", s.ImportChat)
	r.POST("/chat-sequences", s.CreateChatSequence)
	r.PUT("/chat-sequences/:id/messages", s.SetSequenceMessages)
	r.GET("/chat-sequences/:id/transcript", s.GetTranscript)

	r.POST("/events", s.CreateEvent)
	r.GET("/events/:id", s.GetEvent)
	r.PUT("/events/:id/photos", s.SetEventPhotos)

	r.POST("/documents", s.CreateDocument)
	r.GET("/documents", s.ListDocuments)
	r.GET("/documents/:id/tree", s.GetDocumentTree)
	r.POST("/documents/:id/nodes/root", s.AddRootNode)
	r.POST("/nodes/:id/child", s.AddChildNode)
	r.POST("/nodes/:id/sibling", s.AddSiblingNode)
	r.POST("/nodes/:id/parent", s.AddParentNode)
	r.POST("/nodes/:id/move", s.MoveNode)
	r.DELETE("/nodes/:id", s.DeleteNode)
	r.PUT("/statements/:id", s.UpdateStatement)
	r.POST("/correct-text", s.CorrectText)

	r.POST("/narratives", s.CreateNarrative)
	r.GET("/narratives/:id", s.GetNarrative)
	r.PUT("/narratives/:id", s.UpdateNarrative)
	r.PUT("/narratives/:id/evidence", s.SetNarrativeEvidence)
	r.PUT("/narratives/:id/targets", s.SetNarrativeTargets)
	r.GET("/narratives/:id/timeline", s.GetNarrativeTimeline)
	r.GET("/narratives/:id/sources", s.GetNarrativeSources)
	r.POST("/narratives/:id/analyze", s.AnalyzeNarrative)

	r.POST("/cases", s.CreateCase)
	r.GET("/cases/:id", s.GetCase)
	r.GET("/cases/:id/candidate-statements", s.CandidateStatements)
	r.POST("/cases/:id/exhibits/refresh", s.RefreshExhibits)
	r.GET("/cases/:id/exhibits", s.ListExhibits)
	r.GET("/cases/:id/export", s.ExportCase)

	r.POST("/contestations", s.CreateContestation)
	r.GET("/contestations/:id", s.GetContestation)
	r.PUT("/contestations/:id/sections", s.UpdateContestationSections)
	r.PUT("/contestations/:id/targets", s.SetContestationTargets)
	r.PUT("/contestations/:id/narratives", s.SetContestationNarratives)
	r.DELETE("/contestations/:id", s.DeleteContestation)
	r.GET("/contestations/:id/dossier", s.PreviewDossier)
	r.POST("/contestations/:id/suggestions", s.GenerateSuggestion)
	r.POST("/contestations/:id/police-report", s.GeneratePoliceReport)
	r.GET("/contestations/:id/suggestions", s.ListSuggestions)
	r.POST("/suggestions/:id/retry-parse", s.RetryParse)

	return r
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// fail maps domain errors to status codes. Integrity violations are client
// errors; everything else is a 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, store.ErrAlreadyTargeted):
		c.JSON(http.StatusConflict, gin.H{"error": "Statement already targeted by another contestation in this case"})
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, eml.ErrAlreadySaved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrRootForbidden):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("server: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
