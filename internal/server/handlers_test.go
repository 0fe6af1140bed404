package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
	"github.com/LPDavidbdeb/court-sub000/internal/contest"
	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/export"
	"github.com/LPDavidbdeb/court-sub000/internal/ingest/chat"
	"github.com/LPDavidbdeb/court-sub000/internal/ingest/eml"
	photoingest "github.com/LPDavidbdeb/court-sub000/internal/ingest/photo"
	"github.com/LPDavidbdeb/court-sub000/internal/library"
	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/protagonist"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// MockLLM keeps handler tests off the network.
type MockLLM struct {
	Response string
	Err      error
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Response, m.Err
}

func (m *MockLLM) GenerateJSON(ctx context.Context, prompt, model string, temperature float32) (string, error) {
	return m.Response, m.Err
}

func (m *MockLLM) GenerateVision(ctx context.Context, prompt string, images []llm.Image) (string, error) {
	return m.Response, m.Err
}

func newTestServer(t *testing.T, mock *MockLLM) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mediaRoot := t.TempDir()

	st, err := store.Open(filepath.Join(mediaRoot, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	personas := llm.NewPersonas(nil)
	reconciler := protagonist.NewReconciler(st)
	engine := narrative.NewEngine(st)
	registry := exhibit.NewRegistry(st)
	srv := &Server{
		Config:       &config.Config{Media: config.MediaConfig{Root: mediaRoot}},
		Store:        st,
		Reconciler:   reconciler,
		Tree:         library.NewTree(st),
		Engine:       engine,
		Registry:     registry,
		Notifier:     exhibit.NewNotifier(st, registry),
		Orchestrator: contest.NewOrchestrator(st, engine, registry, mock, personas),
		Analyzer:     llm.NewAnalyzer(mock, personas, st, mediaRoot),
		EmlImporter:  eml.NewImporter(st, reconciler, mediaRoot),
		ChatImporter: chat.NewImporter(st, reconciler),
		Photos:       photoingest.NewProcessor(st, mediaRoot),
		Exporter:     export.NewBuilder(st, registry, mediaRoot),
	}
	return srv, srv.SetupRouter()
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProtagonistEndpoints(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})

	w := doJSON(r, http.MethodPost, "/protagonists",
		gin.H{"first_name": "Anne", "last_name": "Roy", "role": "Demanderesse"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/protagonists", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Anne")
}

func TestMergeUnknownProtagonistIs404(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})
	w := doJSON(r, http.MethodPost, "/protagonists/merge",
		gin.H{"original_id": 1, "duplicate_id": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDocumentValidatesSourceType(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})

	w := doJSON(r, http.MethodPost, "/documents",
		gin.H{"title": "Affidavit", "source_type": "AUTRE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/documents",
		gin.H{"title": "Affidavit", "source_type": "REPRODUCED"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLibraryNodeFlow(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})

	w := doJSON(r, http.MethodPost, "/documents",
		gin.H{"title": "Affidavit", "source_type": "REPRODUCED"})
	require.Equal(t, http.StatusCreated, w.Code)
	var doc struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	// Transparent statement creation: kind statement, no content id.
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/documents/%d/nodes/root", doc.ID),
		gin.H{"kind": "statement", "text": "Premier paragraphe"})
	require.Equal(t, http.StatusCreated, w.Code)
	var root struct {
		ID        int64 `json:"id"`
		ContentID int64 `json:"content_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
	assert.NotZero(t, root.ContentID)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/nodes/%d/child", root.ID),
		gin.H{"kind": "statement", "text": "Sous-point"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Sibling insertion requires an explicit side.
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/nodes/%d/sibling", root.ID),
		gin.H{"kind": "statement", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Roots take no siblings.
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/nodes/%d/sibling", root.ID),
		gin.H{"kind": "statement", "text": "x", "position": "right"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/documents/%d/tree", doc.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Premier paragraphe")
	assert.Contains(t, w.Body.String(), "Sous-point")
}

func createCase(t *testing.T, r *gin.Engine) int64 {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/cases", gin.H{"title": "Dossier"})
	require.Equal(t, http.StatusCreated, w.Code)
	var lc struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lc))
	return lc.ID
}

func createContestation(t *testing.T, r *gin.Engine, caseID int64) int64 {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/contestations",
		gin.H{"case_id": caseID, "title": "Contestation"})
	require.Equal(t, http.StatusCreated, w.Code)
	var pc struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pc))
	return pc.ID
}

func TestContestationTargetConflictIs409(t *testing.T) {
	srv, r := newTestServer(t, &MockLLM{})
	ctx := context.Background()

	caseID := createCase(t, r)
	first := createContestation(t, r, caseID)
	second := createContestation(t, r, caseID)

	st := &model.Statement{Text: "Aucun contact durant 2022", IsFalsifiable: true}
	require.NoError(t, srv.Store.CreateStatement(ctx, st))

	w := doJSON(r, http.MethodPut, fmt.Sprintf("/contestations/%d/targets", first),
		gin.H{"statement_ids": []int64{st.ID}})
	require.Equal(t, http.StatusOK, w.Code)

	// Same statement in the same case belongs to one contestation only.
	w = doJSON(r, http.MethodPut, fmt.Sprintf("/contestations/%d/targets", second),
		gin.H{"statement_ids": []int64{st.ID}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetEmailNotFound(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})
	w := doJSON(r, http.MethodGet, "/emails/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/emails/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadEmlConflictOnDuplicate(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{})

	raw := "From: a@example.com\r\n" +
		"To: b@example.com\r\n" +
		"Subject: test\r\n" +
		"Message-ID: <m1@example.com>\r\n" +
		"\r\n" +
		"corps\r\n"

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "message.eml")
		require.NoError(t, err)
		_, err = fw.Write([]byte(raw))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/emails/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload()
	require.Equal(t, http.StatusCreated, w.Code)
	w = upload()
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUploadPDFValidatesAndVersions(t *testing.T) {
	srv, r := newTestServer(t, &MockLLM{})

	upload := func(filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 contenu"))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("title", "Contrat"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/pdf-documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload("notes.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("contrat.pdf")
	require.Equal(t, http.StatusCreated, w.Code)
	var first struct {
		FilePath string `json:"file_path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, filepath.Join("pdf_documents", "contrat.pdf"), first.FilePath)
	_, err := os.Stat(filepath.Join(srv.Config.Media.Root, first.FilePath))
	assert.NoError(t, err)

	// A name collision gets a version suffix instead of overwriting.
	w = upload("contrat.pdf")
	require.Equal(t, http.StatusCreated, w.Code)
	var second struct {
		FilePath string `json:"file_path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, filepath.Join("pdf_documents", "contrat_v2.pdf"), second.FilePath)
	_, err = os.Stat(filepath.Join(srv.Config.Media.Root, second.FilePath))
	assert.NoError(t, err)
}

func TestGenerateSuggestionEndpoint(t *testing.T) {
	srv, r := newTestServer(t, &MockLLM{Response: `{"suggestion_sec1": "texte"}`})
	ctx := context.Background()

	caseID := createCase(t, r)
	pcID := createContestation(t, r, caseID)

	w := doJSON(r, http.MethodPost, fmt.Sprintf("/contestations/%d/suggestions", pcID), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "suggestion_sec1")
	assert.Contains(t, w.Body.String(), `"parsing_success":true`)

	suggestions, err := srv.Store.ListSuggestions(ctx, pcID)
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}

func TestRetryParseUnprocessable(t *testing.T) {
	_, r := newTestServer(t, &MockLLM{Response: "désolé, pas de JSON"})

	caseID := createCase(t, r)
	pcID := createContestation(t, r, caseID)

	// A response with no decodable block is persisted as a failed suggestion.
	w := doJSON(r, http.MethodPost, fmt.Sprintf("/contestations/%d/suggestions", pcID), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var sug struct {
		ID             int64 `json:"id"`
		ParsingSuccess bool  `json:"parsing_success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sug))
	assert.False(t, sug.ParsingSuccess)

	// The raw text still holds no JSON, so the retry stays unprocessable.
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/suggestions/%d/retry-parse", sug.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "suggestion")
}
