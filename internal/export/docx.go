// Package export renders finalized contestations and their exhibit registry
// into a court-ready DOCX.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fumiama/go-docx"

	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Body text is Arial 11pt; docx sizes are half-points.
const (
	fontName  = "Arial"
	bodySize  = "22"
	titleSize = "32"
	headSize  = "26"

	// Photo grid cells render at 2.8in; at the 96dpi the writer assumes
	// that is 269px.
	photoCellPx = 269
)

type Builder struct {
	Store     *store.Store
	Registry  *exhibit.Registry
	MediaRoot string
}

func NewBuilder(s *store.Store, r *exhibit.Registry, mediaRoot string) *Builder {
	return &Builder{Store: s, Registry: r, MediaRoot: mediaRoot}
}

// WriteCaseFile builds the case export and writes it to path.
func (b *Builder) WriteCaseFile(ctx context.Context, caseID int64, path string) error {
	doc, err := b.BuildCase(ctx, caseID)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = doc.WriteTo(f)
	return err
}

// BuildCase assembles cover, contestation sections, exhibit index and
// annexes. Output is deterministic: content order follows contestation and
// exhibit numbers, and no generation timestamp is written.
func (b *Builder) BuildCase(ctx context.Context, caseID int64) (*docx.Docx, error) {
	legalCase, err := b.Store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	contestations, err := b.Store.ListContestationsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	entries, err := b.Store.ListExhibits(ctx, caseID)
	if err != nil {
		return nil, err
	}

	doc := docx.New().WithDefaultTheme().WithA4Page()

	title := doc.AddParagraph().Justification("center")
	title.AddText(legalCase.Title).Size(titleSize).Bold().Font(fontName, "", fontName, "")
	doc.AddParagraph()

	for i, pc := range contestations {
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}
		b.writeContestation(doc, &pc)
	}

	doc.AddParagraph().AddPageBreaks()
	b.writeExhibitIndex(ctx, doc, entries)

	for _, e := range entries {
		doc.AddParagraph().AddPageBreaks()
		if err := b.writeAnnex(ctx, doc, e); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (b *Builder) writeContestation(doc *docx.Docx, pc *model.PerjuryContestation) {
	h := doc.AddParagraph()
	h.AddText(pc.Title).Size(headSize).Bold().Font(fontName, "", fontName, "")

	sections := []struct {
		title string
		text  string
	}{
		{"1. Déclaration visée", pc.SectionDeclaration},
		{"2. Preuve de fausseté", pc.SectionProof},
		{"3. Connaissance de la fausseté", pc.SectionMensRea},
		{"4. Intention de tromper", pc.SectionIntent},
	}
	for _, sec := range sections {
		sh := doc.AddParagraph()
		sh.AddText(sec.title).Size(bodySize).Bold().Font(fontName, "", fontName, "")
		writeSectionBody(doc, sec.text)
		doc.AddParagraph()
	}
}

func writeSectionBody(doc *docx.Docx, text string) {
	for _, line := range ParseSection(text) {
		p := doc.AddParagraph()
		prefix := ""
		if line.Bullet {
			prefix = "• "
		} else if line.Numbered {
			prefix = fmt.Sprintf("%d. ", line.Number)
		}
		first := true
		for _, span := range line.Spans {
			content := span.Text
			if first {
				content = prefix + content
				first = false
			}
			r := p.AddText(content).Size(bodySize).Font(fontName, "", fontName, "")
			if span.Bold {
				r.Bold()
			}
		}
	}
}

// writeExhibitIndex renders the three-column index: label, nature, title.
func (b *Builder) writeExhibitIndex(ctx context.Context, doc *docx.Docx, entries []model.ExhibitEntry) {
	h := doc.AddParagraph()
	h.AddText("Index des pièces").Size(headSize).Bold().Font(fontName, "", fontName, "")

	table := doc.AddTable(len(entries)+1, 3, 0, nil)
	header := table.TableRows[0]
	for i, label := range []string{"Pièce", "Nature", "Titre"} {
		header.TableCells[i].AddParagraph().AddText(label).Size(bodySize).Bold().Font(fontName, "", fontName, "")
	}
	for i, e := range entries {
		nature, title := b.describeExhibit(ctx, e)
		row := table.TableRows[i+1]
		row.TableCells[0].AddParagraph().AddText(exhibit.Label(e.ExhibitNumber)).Size(bodySize).Font(fontName, "", fontName, "")
		row.TableCells[1].AddParagraph().AddText(nature).Size(bodySize).Font(fontName, "", fontName, "")
		row.TableCells[2].AddParagraph().AddText(title).Size(bodySize).Font(fontName, "", fontName, "")
	}
}

func (b *Builder) describeExhibit(ctx context.Context, e model.ExhibitEntry) (nature, title string) {
	ref := model.EvidenceRef{Kind: e.ContentKind, ID: e.ContentID}
	switch ref.Kind {
	case model.KindEmail:
		if m, err := b.Store.GetEmail(ctx, ref.ID); err == nil {
			return "Courriel", m.Subject
		}
	case model.KindPDFDocument:
		if d, err := b.Store.GetPDFDocument(ctx, ref.ID); err == nil {
			return "Document PDF", d.Title
		}
	case model.KindPhotoDocument:
		if d, err := b.Store.GetPhotoDocument(ctx, ref.ID); err == nil {
			return "Document photographié", d.Title
		}
	case model.KindChatSequence:
		if s, err := b.Store.GetChatSequence(ctx, ref.ID); err == nil {
			return "Clavardage", s.Title
		}
	case model.KindEvent:
		if ev, err := b.Store.GetEvent(ctx, ref.ID); err == nil {
			return "Événement", ev.Date.Format("2006-01-02")
		}
	}
	return string(ref.Kind), fmt.Sprintf("objet %d", ref.ID)
}

func (b *Builder) writeAnnex(ctx context.Context, doc *docx.Docx, e model.ExhibitEntry) error {
	label := exhibit.Label(e.ExhibitNumber)
	h := doc.AddParagraph()
	nature, title := b.describeExhibit(ctx, e)
	h.AddText(fmt.Sprintf("%s — %s : %s", label, nature, title)).Size(headSize).Bold().Font(fontName, "", fontName, "")

	switch e.ContentKind {
	case model.KindEmail:
		m, err := b.Store.GetEmail(ctx, e.ContentID)
		if err != nil {
			return err
		}
		meta := doc.AddParagraph()
		meta.AddText(fmt.Sprintf("De: %s — %s", m.SenderRaw, m.DateSent.Format("2006-01-02 15:04"))).
			Size(bodySize).Font(fontName, "", fontName, "")
		writePlainBlock(doc, m.BodyText)

	case model.KindChatSequence:
		lines, err := b.Store.SequenceTranscript(ctx, e.ContentID)
		if err != nil {
			return err
		}
		var day string
		for _, l := range lines {
			d := l.Timestamp.Format("2006-01-02")
			if d != day {
				day = d
				dh := doc.AddParagraph()
				dh.AddText(day).Size(bodySize).Bold().Font(fontName, "", fontName, "")
			}
			p := doc.AddParagraph()
			p.AddText(fmt.Sprintf("%s %s : %s", l.Timestamp.Format("15:04"), l.SenderName, l.Text)).
				Size(bodySize).Font(fontName, "", fontName, "")
		}

	case model.KindPhotoDocument:
		pd, err := b.Store.GetPhotoDocument(ctx, e.ContentID)
		if err != nil {
			return err
		}
		if pd.Description != "" {
			writePlainBlock(doc, pd.Description)
		}
		if err := b.writePhotoGrid(ctx, doc, pd.PhotoIDs); err != nil {
			return err
		}
		if pd.AIAnalysis != "" {
			writePlainBlock(doc, pd.AIAnalysis)
		}

	case model.KindPDFDocument:
		d, err := b.Store.GetPDFDocument(ctx, e.ContentID)
		if err != nil {
			return err
		}
		writePlainBlock(doc, d.AIAnalysis)

	case model.KindEvent:
		ev, err := b.Store.GetEvent(ctx, e.ContentID)
		if err != nil {
			return err
		}
		writePlainBlock(doc, ev.Explanation)
		if err := b.writePhotoGrid(ctx, doc, ev.PhotoIDs); err != nil {
			return err
		}
	}
	return nil
}

// writePhotoGrid lays photos out two per row. Each image is pre-resized to
// the cell width so the writer's pixel-to-inch mapping lands on 2.8in.
// Duplicate ids render once.
func (b *Builder) writePhotoGrid(ctx context.Context, doc *docx.Docx, photoIDs []int64) error {
	seen := make(map[int64]bool)
	var unique []int64
	for _, id := range photoIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	rows := (len(unique) + 1) / 2
	if rows == 0 {
		return nil
	}
	table := doc.AddTable(rows, 2, 0, nil)
	for i, id := range unique {
		photo, err := b.Store.GetPhoto(ctx, id)
		if err != nil {
			return err
		}
		cell := table.TableRows[i/2].TableCells[i%2]
		data, err := cellImage(filepath.Join(b.MediaRoot, photo.File))
		if err != nil {
			log.Printf("export: photo %d unreadable: %v", id, err)
			cell.AddParagraph().AddText("[photo manquante]").Size(bodySize).Font(fontName, "", fontName, "")
			continue
		}
		if _, err := cell.AddParagraph().AddInlineDrawing(data); err != nil {
			return err
		}
		if photo.DatetimeOriginal != nil {
			cell.AddParagraph().AddText(photo.DatetimeOriginal.Format("2006-01-02 15:04")).
				Size(bodySize).Font(fontName, "", fontName, "")
		}
	}
	return nil
}

func cellImage(path string) ([]byte, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	resized := imaging.Resize(img, photoCellPx, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePlainBlock(doc *docx.Docx, text string) {
	for _, line := range ParseSection(text) {
		p := doc.AddParagraph()
		for _, span := range line.Spans {
			r := p.AddText(span.Text).Size(bodySize).Font(fontName, "", fontName, "")
			if span.Bold {
				r.Bold()
			}
		}
	}
}
