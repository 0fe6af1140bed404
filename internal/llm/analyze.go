package llm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Analysis limits: forensic description runs on at most 10 pages/photos,
// PDF pages rasterized at 150 DPI.
const (
	maxAnalysisPages = 10
	rasterDPI        = 150
)

// Analyzer runs the persona-driven forensic description of PDF documents and
// photo documents, writing the result to the object's ai_analysis field.
type Analyzer struct {
	Client    Client
	Personas  *Personas
	Store     *store.Store
	MediaRoot string
}

func NewAnalyzer(client Client, personas *Personas, s *store.Store, mediaRoot string) *Analyzer {
	return &Analyzer{Client: client, Personas: personas, Store: s, MediaRoot: mediaRoot}
}

// AnalyzePDF rasterizes the document's first pages and asks the transcriber
// persona for a full transcription, persisted as the document analysis.
func (a *Analyzer) AnalyzePDF(ctx context.Context, pdfID int64) (string, error) {
	doc, err := a.Store.GetPDFDocument(ctx, pdfID)
	if err != nil {
		return "", err
	}
	pages, err := rasterizePDF(filepath.Join(a.MediaRoot, doc.FilePath), maxAnalysisPages)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize %s: %w", doc.FilePath, err)
	}
	prompt, _, err := a.Personas.Render(PersonaPDFTranscriber, doc.Title)
	if err != nil {
		return "", err
	}
	text, err := a.Client.GenerateVision(ctx, prompt, pages)
	if err != nil {
		return "", err
	}
	if err := a.Store.UpdatePDFAnalysis(ctx, pdfID, text); err != nil {
		return "", err
	}
	return text, nil
}

// AnalyzePhotoDocument feeds the grouped photos (capped at 10) to the photo
// analyst persona.
func (a *Analyzer) AnalyzePhotoDocument(ctx context.Context, photoDocID int64) (string, error) {
	pd, err := a.Store.GetPhotoDocument(ctx, photoDocID)
	if err != nil {
		return "", err
	}
	var images []Image
	for i, pid := range pd.PhotoIDs {
		if i >= maxAnalysisPages {
			break
		}
		photo, err := a.Store.GetPhoto(ctx, pid)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.MediaRoot, photo.File))
		if err != nil {
			continue
		}
		images = append(images, Image{MIME: "image/jpeg", Data: data})
	}
	if len(images) == 0 {
		return "", fmt.Errorf("photo document %d has no readable photos", photoDocID)
	}
	prompt, _, err := a.Personas.Render(PersonaPhotoAnalyst, pd.Title)
	if err != nil {
		return "", err
	}
	text, err := a.Client.GenerateVision(ctx, prompt, images)
	if err != nil {
		return "", err
	}
	if err := a.Store.UpdatePhotoDocumentAnalysis(ctx, photoDocID, text); err != nil {
		return "", err
	}
	return text, nil
}

// CorrectText runs the copy-editor persona: HTML in, HTML out, tags
// preserved. customPrompt appends user instructions when non-empty.
func (a *Analyzer) CorrectText(ctx context.Context, html, treeContext, customPrompt string) (string, error) {
	prompt, _, err := a.Personas.Render(PersonaCopyEditor, treeContext, html, customPrompt)
	if err != nil {
		return "", err
	}
	return a.Client.Generate(ctx, prompt)
}

// rasterizePDF shells out to pdftoppm, which is treated as an opaque
// rasterizer the way the raw decoder is.
func rasterizePDF(path string, maxPages int) ([]Image, error) {
	tmp, err := os.MkdirTemp("", "pdfraster")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	cmd := exec.Command("pdftoppm", "-jpeg",
		"-r", fmt.Sprint(rasterDPI),
		"-f", "1", "-l", fmt.Sprint(maxPages),
		path, filepath.Join(tmp, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, out)
	}

	entries, err := filepath.Glob(filepath.Join(tmp, "page*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	var images []Image
	for _, p := range entries {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		images = append(images, Image{MIME: "image/jpeg", Data: data})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages produced")
	}
	return images, nil
}
