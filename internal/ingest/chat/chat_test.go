package chat

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/protagonist"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

func newImporter(t *testing.T) *Importer {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewImporter(s, protagonist.NewReconciler(s))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp(takeoutMessage{CreateTime: "2023-03-14T13:41:07Z"})
	require.NoError(t, err)
	assert.Equal(t, 14, ts.Day())
	assert.Equal(t, 13, ts.Hour())

	ts, err = parseTimestamp(takeoutMessage{CreatedDate: "Tuesday, March 14, 2023 at 9:41:07 AM UTC"})
	require.NoError(t, err)
	assert.Equal(t, 14, ts.Day())
	assert.Equal(t, 9, ts.Hour())

	// createTime wins when both are present.
	ts, err = parseTimestamp(takeoutMessage{
		CreateTime:  "2023-03-14T13:41:07Z",
		CreatedDate: "Monday, January 2, 2006 at 3:04:05 PM UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, 2023, ts.Year())

	_, err = parseTimestamp(takeoutMessage{})
	assert.Error(t, err)
	_, err = parseTimestamp(takeoutMessage{CreateTime: "pas une date"})
	assert.Error(t, err)
}

func TestImportJSON(t *testing.T) {
	im := newImporter(t)
	ctx := context.Background()

	data := []byte(`{
		"messages": [
			{
				"creator": {"name": "Anne Roy", "email": "anne@example.com"},
				"createTime": "2023-03-14T13:41:07Z",
				"topic_id": "t1",
				"text": "Bonjour"
			},
			{
				"creator": {"name": "Marc", "email": "marc@example.com"},
				"created_date": "Tuesday, March 14, 2023 at 9:41:07 AM UTC",
				"topic_id": "t1",
				"text": "Salut"
			},
			{
				"creator": {"name": "Sans courriel"},
				"createTime": "2023-03-14T14:00:00Z",
				"topic_id": "t1",
				"text": "rejeté"
			}
		]
	}`)

	res, err := im.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	// The participant was linked to a reconciled protagonist.
	participant, err := im.Store.GetOrCreateChatParticipant(ctx, "anne@example.com")
	require.NoError(t, err)
	require.NotNil(t, participant.ProtagonistID)
	p, err := im.Store.GetProtagonist(ctx, *participant.ProtagonistID)
	require.NoError(t, err)
	assert.Equal(t, "Anne", p.FirstName)
}

func TestImportJSONUnparseable(t *testing.T) {
	im := newImporter(t)
	_, err := im.ImportJSON(context.Background(), []byte("pas du json"))
	assert.Error(t, err)
}
