// Package gmail syncs provider threads into the evidence store through the
// installed-application OAuth2 flow.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
	"github.com/LPDavidbdeb/court-sub000/internal/ingest/eml"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

const userID = "me"

type Syncer struct {
	Service  *gmailapi.Service
	Store    *store.Store
	Importer *eml.Importer
	Source   string // provider tag stored on threads and emails
}

// NewSyncer builds the authenticated service. The refresh token is cached at
// the configured path; the first run walks the user through the consent URL
// on stdin/stdout.
func NewSyncer(ctx context.Context, cfg config.GmailConfig, s *store.Store, importer *eml.Importer) (*Syncer, error) {
	creds, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file '%s': %w", cfg.CredentialsPath, err)
	}
	oauthCfg, err := google.ConfigFromJSON(creds, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	client, err := oauthClient(ctx, oauthCfg, cfg.TokenCachePath)
	if err != nil {
		return nil, err
	}
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	return &Syncer{Service: svc, Store: s, Importer: importer, Source: "gmail"}, nil
}

func oauthClient(ctx context.Context, cfg *oauth2.Config, tokenPath string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = tokenFromConsent(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			log.Printf("gmail: failed to cache token: %v", err)
		}
	}
	return cfg.Client(ctx, tok), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

func tokenFromConsent(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Ouvrez ce lien, autorisez l'accès, puis collez le code:\n%v\n", url)
	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	return cfg.Exchange(ctx, code)
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Query builds the provider search string from participants and a date
// window. Dates use the provider's after:/before: grammar.
func Query(from, to string, after, before *time.Time) string {
	q := ""
	if from != "" {
		q += fmt.Sprintf("from:%s ", from)
	}
	if to != "" {
		q += fmt.Sprintf("to:%s ", to)
	}
	if after != nil {
		q += fmt.Sprintf("after:%s ", after.Format("2006/01/02"))
	}
	if before != nil {
		q += fmt.Sprintf("before:%s ", before.Format("2006/01/02"))
	}
	return strings.TrimSpace(q)
}

// SyncResult summarizes one search run.
type SyncResult struct {
	ThreadsSeen     int `json:"threads_seen"`
	ThreadsImported int `json:"threads_imported"`
	EmailsImported  int `json:"emails_imported"`
	ThreadsFailed   int `json:"threads_failed"`
}

// SyncSearch runs the query, skips threads already saved and imports the new
// ones. One broken thread never aborts the batch.
func (sy *Syncer) SyncSearch(ctx context.Context, query string) (*SyncResult, error) {
	threadIDs, err := sy.searchThreadIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	res := &SyncResult{ThreadsSeen: len(threadIDs)}

	known, err := sy.Store.KnownThreadIDs(ctx, threadIDs)
	if err != nil {
		return nil, err
	}
	for _, tid := range threadIDs {
		if known[tid] {
			continue
		}
		n, err := sy.importThread(ctx, tid)
		if err != nil {
			log.Printf("gmail: thread %s failed: %v", tid, err)
			res.ThreadsFailed++
			continue
		}
		res.ThreadsImported++
		res.EmailsImported += n
	}
	return res, nil
}

// SyncThreadDelta refreshes one saved thread: messages present remotely but
// missing locally are fetched and imported.
func (sy *Syncer) SyncThreadDelta(ctx context.Context, threadID string) (int, error) {
	t, err := sy.Store.GetThreadByThreadID(ctx, threadID)
	if err != nil {
		return 0, err
	}
	local, err := sy.Store.MessageIDsForThread(ctx, t.ID)
	if err != nil {
		return 0, err
	}

	remote, err := sy.Service.Users.Threads.Get(userID, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, msg := range remote.Messages {
		mid := headerValue(msg, "Message-ID")
		if mid == "" || local[mid] {
			continue
		}
		if err := sy.importMessage(ctx, msg.Id); err != nil {
			log.Printf("gmail: message %s failed: %v", msg.Id, err)
			continue
		}
		imported++
	}
	return imported, nil
}

func (sy *Syncer) searchThreadIDs(ctx context.Context, query string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	pageToken := ""
	for {
		call := sy.Service.Users.Messages.List(userID).Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("provider search failed: %w", err)
		}
		for _, m := range resp.Messages {
			if !seen[m.ThreadId] {
				seen[m.ThreadId] = true
				ids = append(ids, m.ThreadId)
			}
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (sy *Syncer) importThread(ctx context.Context, threadID string) (int, error) {
	t, err := sy.Service.Users.Threads.Get(userID, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(t.Messages))
	for i, msg := range t.Messages {
		ids[i] = msg.Id
	}
	return importMessages(ctx, ids, sy.importMessage)
}

// importMessages stops at the first failed message, aborting the rest of the
// thread. The caller's per-thread loop records the failure and moves on.
func importMessages(ctx context.Context, ids []string, imp func(context.Context, string) error) (int, error) {
	imported := 0
	for _, id := range ids {
		if err := imp(ctx, id); err != nil {
			return imported, fmt.Errorf("message %s: %w", id, err)
		}
		imported++
	}
	return imported, nil
}

// importMessage fetches the raw RFC 5322 bytes and funnels them through the
// .eml import path, so provider mail and uploaded files share one pipeline.
func (sy *Syncer) importMessage(ctx context.Context, messageID string) error {
	msg, err := sy.Service.Users.Messages.Get(userID, messageID).Format("raw").Context(ctx).Do()
	if err != nil {
		return err
	}
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return fmt.Errorf("bad raw encoding: %w", err)
	}
	p, err := eml.Parse(raw)
	if err != nil {
		return err
	}
	exists, err := sy.Store.EmailExists(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	emlPath, err := sy.Importer.SaveProviderFile(raw, p, sy.Source)
	if err != nil {
		return err
	}
	_, err = sy.Importer.Import(ctx, p, emlPath, sy.Source)
	return err
}

func headerValue(msg *gmailapi.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return strings.Trim(h.Value, "<> ")
		}
	}
	return ""
}
