package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LPDavidbdeb/court-sub000/internal/ingest/gmail"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Server) ListProtagonists(c *gin.Context) {
	out, err := s.Store.ListProtagonists(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"protagonists": out})
}

func (s *Server) CreateProtagonist(c *gin.Context) {
	var p model.Protagonist
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateProtagonist(c.Request.Context(), &p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type MergeRequest struct {
	OriginalID  int64 `json:"original_id"`
	DuplicateID int64 `json:"duplicate_id"`
}

func (s *Server) MergeProtagonists(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Reconciler.Merge(c.Request.Context(), req.OriginalID, req.DuplicateID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "merged"})
}

// UploadEml accepts one .eml file as multipart form field "file".
func (s *Server) UploadEml(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	email, err := s.EmlImporter.ImportUpload(c.Request.Context(), raw, header.Filename)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, email)
}

func (s *Server) GetEmail(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	email, err := s.Store.GetEmail(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}

type SyncRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	After  string `json:"after"`  // YYYY-MM-DD
	Before string `json:"before"` // YYYY-MM-DD
}

func (s *Server) SyncGmail(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	var after, before *time.Time
	if req.After != "" {
		t, err := time.Parse("2006-01-02", req.After)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid after date"})
			return
		}
		after = &t
	}
	if req.Before != "" {
		t, err := time.Parse("2006-01-02", req.Before)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before date"})
			return
		}
		before = &t
	}

	sy, err := gmail.NewSyncer(c.Request.Context(), s.Config.Gmail, s.Store, s.EmlImporter)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := sy.SyncSearch(c.Request.Context(), gmail.Query(req.From, req.To, after, before))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) SyncThreadDelta(c *gin.Context) {
	threadID := c.Param("threadID")
	sy, err := gmail.NewSyncer(c.Request.Context(), s.Config.Gmail, s.Store, s.EmlImporter)
	if err != nil {
		fail(c, err)
		return
	}
	n, err := sy.SyncThreadDelta(c.Request.Context(), threadID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) CreateEmailQuote(c *gin.Context) {
	var q model.EmailQuote
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateEmailQuote(c.Request.Context(), &q); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (s *Server) UpdateEmailQuote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		QuoteText string `json:"quote_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.UpdateEmailQuote(c.Request.Context(), id, req.QuoteText); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeleteEmailQuote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteEmailQuote(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UploadPDF accepts one .pdf file as multipart form field "file"; document
// metadata rides in the remaining form fields.
func (s *Server) UploadPDF(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .pdf files are accepted"})
		return
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}

	d := &model.PDFDocument{
		Title:   c.PostForm("title"),
		DocType: c.PostForm("doc_type"),
	}
	if d.Title == "" {
		d.Title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}
	if v := c.PostForm("document_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document_date must be YYYY-MM-DD"})
			return
		}
		d.DocumentDate = &t
	}
	if v := c.PostForm("author_protagonist_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid author_protagonist_id"})
			return
		}
		d.AuthorProtagonistID = &id
	}

	rel, err := savePDFVersioned(s.Config.Media.Root, filepath.Base(header.Filename), raw)
	if err != nil {
		fail(c, err)
		return
	}
	d.FilePath = rel

	if err := s.Store.CreatePDFDocument(c.Request.Context(), d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// savePDFVersioned writes the upload under pdf_documents/, suffixing _v2,
// _v3, ... when the name is already taken. Returns the path relative to the
// media root.
func savePDFVersioned(mediaRoot, filename string, data []byte) (string, error) {
	dir := filepath.Join(mediaRoot, "pdf_documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	rel := filepath.Join("pdf_documents", base+".pdf")
	for v := 2; ; v++ {
		if _, err := os.Stat(filepath.Join(mediaRoot, rel)); os.IsNotExist(err) {
			break
		}
		rel = filepath.Join("pdf_documents", fmt.Sprintf("%s_v%d.pdf", base, v))
	}
	if err := os.WriteFile(filepath.Join(mediaRoot, rel), data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *Server) GetPDFDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	d, err := s.Store.GetPDFDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) AnalyzePDF(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	text, err := s.Analyzer.AnalyzePDF(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ai_analysis": text})
}

func (s *Server) CreatePDFQuote(c *gin.Context) {
	var q model.PDFQuote
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreatePDFQuote(c.Request.Context(), &q); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (s *Server) UpdatePDFQuote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		QuoteText  string `json:"quote_text"`
		PageNumber int    `json:"page_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.UpdatePDFQuote(c.Request.Context(), id, req.QuoteText, req.PageNumber); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeletePDFQuote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.Store.DeletePDFQuote(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) CreatePhotoDocument(c *gin.Context) {
	var d model.PhotoDocument
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreatePhotoDocument(c.Request.Context(), &d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) GetPhotoDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	d, err := s.Store.GetPhotoDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) AnalyzePhotoDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	text, err := s.Analyzer.AnalyzePhotoDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ai_analysis": text})
}

func (s *Server) ImportChat(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	res, err := s.ChatImporter.ImportJSON(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) CreateChatSequence(c *gin.Context) {
	var seq model.ChatSequence
	if err := c.ShouldBindJSON(&seq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateChatSequence(c.Request.Context(), &seq); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, seq)
}

func (s *Server) SetSequenceMessages(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		MessageIDs []int64 `json:"message_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SetSequenceMessages(c.Request.Context(), id, req.MessageIDs); err != nil {
		fail(c, err)
		return
	}
	seq, err := s.Store.GetChatSequence(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, seq)
}

func (s *Server) GetTranscript(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	lines, err := s.Store.SequenceTranscript(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": lines})
}

func (s *Server) CreateEvent(c *gin.Context) {
	var ev model.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.CreateEvent(c.Request.Context(), &ev); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) GetEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ev, err := s.Store.GetEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) SetEventPhotos(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		PhotoIDs []int64 `json:"photo_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SetEventPhotos(c.Request.Context(), id, req.PhotoIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
