package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatementNormalization(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := &model.Statement{Text: "J'ai toujours payé", IsTrue: true, IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, st))

	got, err := s.GetStatement(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrue)
	assert.False(t, got.IsFalsifiable, "a true statement cannot stay falsifiable")
	assert.False(t, got.IsAllegation())
}

func TestStatementUpdateKeepsCoupling(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := &model.Statement{Text: "Aucun contact en 2021", IsTrue: false, IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, st))
	assert.True(t, st.IsAllegation())

	st.IsTrue = true
	require.NoError(t, s.UpdateStatement(ctx, st))
	got, err := s.GetStatement(ctx, st.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFalsifiable)
}

func TestGetOrCreateProtagonistIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p1, created, err := s.GetOrCreateProtagonistByEmail(ctx, "a@example.com", "Anne", "Roy", "Auto-Generated")
	require.NoError(t, err)
	assert.True(t, created)

	p2, created, err := s.GetOrCreateProtagonistByEmail(ctx, "a@example.com", "Other", "Name", "Auto-Generated")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, "Anne", p2.FirstName, "existing identity wins over new raw parts")
}

func TestMergeProtagonistsMovesReferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	orig, _, err := s.GetOrCreateProtagonistByEmail(ctx, "orig@example.com", "Marc", "Côté", "Partie adverse")
	require.NoError(t, err)
	dup, _, err := s.GetOrCreateProtagonistByEmail(ctx, "dup@example.com", "M", "Cote", "Auto-Generated")
	require.NoError(t, err)

	doc := &model.Document{Title: "Affidavit", SourceType: model.SourceReproduced, AuthorProtagonistID: &dup.ID}
	require.NoError(t, s.CreateDocument(ctx, doc))

	require.NoError(t, s.MergeProtagonists(ctx, orig.ID, dup.ID))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AuthorProtagonistID)
	assert.Equal(t, orig.ID, *got.AuthorProtagonistID)

	_, err = s.GetProtagonist(ctx, dup.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The duplicate's address now belongs to the original.
	addrs, err := s.ListProtagonistEmails(ctx, orig.ID)
	require.NoError(t, err)
	found := false
	for _, a := range addrs {
		if a.Address == "dup@example.com" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestChatSequenceDatesRecomputed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	part, err := s.GetOrCreateChatParticipant(ctx, "chat@example.com")
	require.NoError(t, err)

	mk := func(ts time.Time) int64 {
		m := &model.ChatMessage{ParticipantID: part.ID, Timestamp: ts, Text: "msg", TopicID: "t1"}
		require.NoError(t, s.CreateChatMessage(ctx, m))
		return m.ID
	}
	m1 := mk(time.Date(2022, 3, 1, 10, 0, 0, 0, time.UTC))
	m2 := mk(time.Date(2022, 3, 5, 10, 0, 0, 0, time.UTC))
	m3 := mk(time.Date(2022, 3, 9, 10, 0, 0, 0, time.UTC))

	seq := &model.ChatSequence{Title: "Négociation", MessageIDs: []int64{m1, m2, m3}}
	require.NoError(t, s.CreateChatSequence(ctx, seq))

	got, err := s.GetChatSequence(ctx, seq.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, 1, got.StartDate.Day())
	assert.Equal(t, 9, got.EndDate.Day())

	// Shrinking the set immediately moves both bounds.
	require.NoError(t, s.SetSequenceMessages(ctx, seq.ID, []int64{m2}))
	got, err = s.GetChatSequence(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StartDate.Day())
	assert.Equal(t, 5, got.EndDate.Day())
}

func TestContestationTargetExclusivity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lc := &model.LegalCase{Title: "Dossier 500-17"}
	require.NoError(t, s.CreateCase(ctx, lc))

	st := &model.Statement{Text: "Je n'ai jamais reçu ces courriels", IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, st))

	pc1 := &model.PerjuryContestation{CaseID: lc.ID, Title: "Contestation 1", TargetedStatementIDs: []int64{st.ID}}
	require.NoError(t, s.CreateContestation(ctx, pc1))

	pc2 := &model.PerjuryContestation{CaseID: lc.ID, Title: "Contestation 2", TargetedStatementIDs: []int64{st.ID}}
	err := s.CreateContestation(ctx, pc2)
	assert.ErrorIs(t, err, ErrAlreadyTargeted)

	// Re-asserting the same target on the owning contestation is fine.
	require.NoError(t, s.SetContestationTargets(ctx, pc1.ID, []int64{st.ID}))

	// A second case may target the same statement.
	lc2 := &model.LegalCase{Title: "Dossier 600-22"}
	require.NoError(t, s.CreateCase(ctx, lc2))
	pc3 := &model.PerjuryContestation{CaseID: lc2.ID, Title: "Autre dossier", TargetedStatementIDs: []int64{st.ID}}
	require.NoError(t, s.CreateContestation(ctx, pc3))
}

func TestCandidateStatements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lc := &model.LegalCase{Title: "Dossier"}
	require.NoError(t, s.CreateCase(ctx, lc))

	alleg := &model.Statement{Text: "allegation", IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, alleg))
	truth := &model.Statement{Text: "vrai", IsTrue: true}
	require.NoError(t, s.CreateStatement(ctx, truth))

	cands, err := s.CandidateStatements(ctx, lc.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, alleg.ID, cands[0].ID)

	pc := &model.PerjuryContestation{CaseID: lc.ID, Title: "C", TargetedStatementIDs: []int64{alleg.ID}}
	require.NoError(t, s.CreateContestation(ctx, pc))

	cands, err = s.CandidateStatements(ctx, lc.ID)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestAssignExhibitsStable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lc := &model.LegalCase{Title: "Dossier"}
	require.NoError(t, s.CreateCase(ctx, lc))

	refs := []model.EvidenceRef{
		{Kind: model.KindEvent, ID: 10},
		{Kind: model.KindEmail, ID: 4},
	}
	created, err := s.AssignExhibits(ctx, lc.ID, refs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Second pass creates nothing and keeps numbers.
	created, err = s.AssignExhibits(ctx, lc.ID, refs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	n, err := s.GetExhibitNumber(ctx, lc.ID, refs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// New objects continue after the case maximum.
	created, err = s.AssignExhibits(ctx, lc.ID, []model.EvidenceRef{{Kind: model.KindPDFDocument, ID: 7}})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	n, err = s.GetExhibitNumber(ctx, lc.ID, model.EvidenceRef{Kind: model.KindPDFDocument, ID: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAssignExhibitsUnknownCase(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AssignExhibits(context.Background(), 999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailThreadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var emailID int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		thread := &model.EmailThread{ThreadID: "t-1", Subject: "Pension", Source: "gmail"}
		if err := s.CreateThreadTx(ctx, tx, thread); err != nil {
			return err
		}
		e := &model.Email{
			ThreadPK:  thread.ID,
			MessageID: "<m1@example.com>",
			Subject:   "Pension",
			SenderRaw: "Anne Roy <a@example.com>",
			DateSent:  time.Date(2022, 1, 15, 9, 0, 0, 0, time.UTC),
			BodyText:  "Bonjour",
			Source:    "gmail",
		}
		if err := s.CreateEmailTx(ctx, tx, e); err != nil {
			return err
		}
		emailID = e.ID
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetEmail(ctx, emailID)
	require.NoError(t, err)
	assert.Equal(t, "<m1@example.com>", got.MessageID)
	assert.Equal(t, 15, got.DateSent.Day())

	exists, err := s.EmailExists(ctx, "<m1@example.com>")
	require.NoError(t, err)
	assert.True(t, exists)

	pk, err := s.ThreadPKForMessageID(ctx, "<m1@example.com>")
	require.NoError(t, err)
	assert.Equal(t, got.ThreadPK, pk)

	known, err := s.KnownThreadIDs(ctx, []string{"t-1", "t-2"})
	require.NoError(t, err)
	assert.True(t, known["t-1"])
	assert.False(t, known["t-2"])
}
