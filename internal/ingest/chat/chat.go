// Package chat imports Google Chat Takeout exports.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/protagonist"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// takeoutFile mirrors the messages.json shape of a Takeout export. Older
// exports carry created_date (a long-form English date), newer ones
// createTime (RFC 3339).
type takeoutFile struct {
	Messages []takeoutMessage `json:"messages"`
}

type takeoutMessage struct {
	Creator struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"creator"`
	CreatedDate string `json:"created_date"`
	CreateTime  string `json:"createTime"`
	TopicID     string `json:"topic_id"`
	Text        string `json:"text"`
}

// created_date example: "Tuesday, March 14, 2023 at 9:41:07 AM UTC".
const createdDateLayout = "Monday, January 2, 2006 at 3:04:05 PM MST"

type Importer struct {
	Store      *store.Store
	Reconciler *protagonist.Reconciler
}

func NewImporter(s *store.Store, r *protagonist.Reconciler) *Importer {
	return &Importer{Store: s, Reconciler: r}
}

// Result summarizes one Takeout import.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportFile loads a Takeout messages.json. Malformed messages are skipped
// with a log line; the batch continues.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return im.ImportJSON(ctx, data)
}

func (im *Importer) ImportJSON(ctx context.Context, data []byte) (*Result, error) {
	var file takeoutFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unparseable takeout export: %w", err)
	}

	res := &Result{}
	for i, msg := range file.Messages {
		if err := im.importMessage(ctx, msg); err != nil {
			log.Printf("chat: message %d (%s) skipped: %v", i, msg.TopicID, err)
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res, nil
}

func (im *Importer) importMessage(ctx context.Context, msg takeoutMessage) error {
	if msg.Creator.Email == "" {
		return fmt.Errorf("no creator email")
	}
	ts, err := parseTimestamp(msg)
	if err != nil {
		return err
	}

	participant, err := im.Store.GetOrCreateChatParticipant(ctx, msg.Creator.Email)
	if err != nil {
		return err
	}
	if participant.ProtagonistID == nil {
		raw := msg.Creator.Email
		if msg.Creator.Name != "" {
			raw = fmt.Sprintf("%s <%s>", msg.Creator.Name, msg.Creator.Email)
		}
		p, err := im.Reconciler.Reconcile(ctx, raw)
		if err != nil {
			return err
		}
		if p != nil {
			if err := im.Store.LinkChatParticipant(ctx, participant.ID, p.ID); err != nil {
				return err
			}
		}
	}

	rawJSON, _ := json.Marshal(msg)
	return im.Store.CreateChatMessage(ctx, &model.ChatMessage{
		ParticipantID: participant.ID,
		Timestamp:     ts,
		Text:          msg.Text,
		TopicID:       msg.TopicID,
		RawJSON:       string(rawJSON),
	})
}

func parseTimestamp(msg takeoutMessage) (time.Time, error) {
	if msg.CreateTime != "" {
		t, err := time.Parse(time.RFC3339, msg.CreateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad createTime %q: %w", msg.CreateTime, err)
		}
		return t.UTC(), nil
	}
	if msg.CreatedDate != "" {
		t, err := time.Parse(createdDateLayout, msg.CreatedDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad created_date %q: %w", msg.CreatedDate, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("no timestamp")
}
