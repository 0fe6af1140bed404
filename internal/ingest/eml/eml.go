// Package eml imports RFC 5322 message files into the evidence store.
package eml

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/protagonist"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// ErrAlreadySaved reports a message id already present in the store.
// Interactive callers show it as-is.
var ErrAlreadySaved = errors.New("ce courriel est déjà sauvegardé")

const uploadSource = "uploaded_eml"

// ParsedEmail is the provider-neutral result of parsing one message file.
type ParsedEmail struct {
	MessageID  string
	Subject    string
	SenderRaw  string
	ToRaw      string
	CcRaw      string
	BccRaw     string
	DateSent   time.Time
	BodyText   string
	InReplyTo  string
	References string
}

type Importer struct {
	Store      *store.Store
	Reconciler *protagonist.Reconciler
	MediaRoot  string
}

func NewImporter(s *store.Store, r *protagonist.Reconciler, mediaRoot string) *Importer {
	return &Importer{Store: s, Reconciler: r, MediaRoot: mediaRoot}
}

// Parse decodes the raw bytes of an .eml file. Multipart messages fall back
// to the HTML part when no plain-text part exists; a missing Message-ID gets
// a synthetic one so dedup still works.
func Parse(raw []byte) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed eml: %w", err)
	}

	p := &ParsedEmail{
		MessageID:  strings.Trim(env.GetHeader("Message-ID"), "<> "),
		Subject:    env.GetHeader("Subject"),
		SenderRaw:  env.GetHeader("From"),
		ToRaw:      env.GetHeader("To"),
		CcRaw:      env.GetHeader("Cc"),
		BccRaw:     env.GetHeader("Bcc"),
		InReplyTo:  strings.Trim(env.GetHeader("In-Reply-To"), "<> "),
		References: env.GetHeader("References"),
	}
	if p.MessageID == "" {
		p.MessageID = fmt.Sprintf("eml-%s@local.host", uuid.NewString())
	}
	if d, err := env.Date(); err == nil {
		p.DateSent = d.UTC()
	}
	p.BodyText = env.Text
	if p.BodyText == "" {
		p.BodyText = env.HTML
	}
	return p, nil
}

// ImportUpload saves one uploaded .eml: parse, dedup by message id, attach to
// the reply chain when the parent is known, reconcile protagonists, persist
// the file under the upload layout.
func (im *Importer) ImportUpload(ctx context.Context, raw []byte, origName string) (*model.Email, error) {
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	exists, err := im.Store.EmailExists(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadySaved
	}

	emlPath, err := im.saveUploadFile(raw, origName)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, p, emlPath, uploadSource)
}

// Import writes the email and, when needed, its one-message thread. Thread
// resolution order: In-Reply-To parent, last References entry, new thread.
// The provider sync reuses this path with its own ParsedEmail.
func (im *Importer) Import(ctx context.Context, p *ParsedEmail, emlPath, source string) (*model.Email, error) {
	email := &model.Email{
		MessageID:  p.MessageID,
		Subject:    p.Subject,
		SenderRaw:  p.SenderRaw,
		ToRaw:      p.ToRaw,
		CcRaw:      p.CcRaw,
		BccRaw:     p.BccRaw,
		DateSent:   p.DateSent,
		BodyText:   p.BodyText,
		EmlPath:    emlPath,
		Source:     source,
		InReplyTo:  p.InReplyTo,
		References: p.References,
	}

	if sender, err := im.Reconciler.Reconcile(ctx, p.SenderRaw); err != nil {
		return nil, err
	} else if sender != nil {
		email.SenderProtagonistID = &sender.ID
	}
	for _, raw := range []string{p.ToRaw, p.CcRaw, p.BccRaw} {
		recips, err := im.Reconciler.ReconcileList(ctx, raw)
		if err != nil {
			return nil, err
		}
		for _, r := range recips {
			email.RecipientIDs = append(email.RecipientIDs, r.ID)
		}
	}

	threadPK, err := im.resolveThread(ctx, p)
	if err != nil {
		return nil, err
	}

	err = im.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if threadPK == 0 {
			t := &model.EmailThread{ThreadID: p.MessageID, Subject: p.Subject, Source: source}
			if err := im.Store.CreateThreadTx(ctx, tx, t); err != nil {
				return err
			}
			threadPK = t.ID
		}
		email.ThreadPK = threadPK
		return im.Store.CreateEmailTx(ctx, tx, email)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("eml: imported %s (%s)", p.MessageID, p.Subject)
	return email, nil
}

// resolveThread walks the reply headers for an already-saved parent. Returns
// 0 when the message starts its own thread.
func (im *Importer) resolveThread(ctx context.Context, p *ParsedEmail) (int64, error) {
	candidates := []string{}
	if p.InReplyTo != "" {
		candidates = append(candidates, p.InReplyTo)
	}
	// References lists the chain oldest-first; the nearest ancestor is last.
	refs := strings.Fields(p.References)
	for i := len(refs) - 1; i >= 0; i-- {
		candidates = append(candidates, strings.Trim(refs[i], "<> "))
	}
	for _, mid := range candidates {
		if mid == "" {
			continue
		}
		pk, err := im.Store.ThreadPKForMessageID(ctx, mid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return pk, nil
	}
	return 0, nil
}

func (im *Importer) saveUploadFile(raw []byte, origName string) (string, error) {
	rel := filepath.Join("DL", "email", "uploaded_eml",
		fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), sanitizeFilename(origName)))
	abs := filepath.Join(im.MediaRoot, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, raw, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

// SaveProviderFile persists a synced message under
// DL/Email/<source>/<YYYYMMDD_sI_tI_subject>.eml, initials taken from the
// first sender and recipient addresses.
func (im *Importer) SaveProviderFile(raw []byte, p *ParsedEmail, source string) (string, error) {
	name := fmt.Sprintf("%s_s%s_t%s_%s.eml",
		p.DateSent.Format("20060102"),
		addressInitial(p.SenderRaw),
		addressInitial(p.ToRaw),
		sanitizeFilename(p.Subject))
	rel := filepath.Join("DL", "Email", source, name)
	abs := filepath.Join(im.MediaRoot, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, raw, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func addressInitial(raw string) string {
	_, addr, ok := protagonist.Parse(strings.SplitN(raw, ",", 2)[0])
	if !ok || addr == "" {
		return "x"
	}
	return addr[:1]
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

func sanitizeFilename(name string) string {
	name = filenameReplacer.Replace(strings.TrimSpace(name))
	if len(name) > 80 {
		name = name[:80]
	}
	if name == "" {
		name = "sans_objet"
	}
	return name
}
