package protagonist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw     string
		name    string
		address string
		ok      bool
	}{
		{`"Anne Roy" <Anne.Roy@Example.com>`, "Anne Roy", "anne.roy@example.com", true},
		{`Marc Côté <marc@example.com>`, "Marc Côté", "marc@example.com", true},
		{`<bare@example.com>`, "", "bare@example.com", true},
		{`bare@example.com`, "", "bare@example.com", true},
		{`  spaced@example.com  `, "", "spaced@example.com", true},
		{`not an address`, "", "", false},
		{``, "", "", false},
	}
	for _, tc := range cases {
		name, address, ok := Parse(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.name, name, tc.raw)
		assert.Equal(t, tc.address, address, tc.raw)
	}
}

func TestNameFromParts(t *testing.T) {
	f, l := nameFromParts("Anne Roy", "anne@example.com")
	assert.Equal(t, "Anne", f)
	assert.Equal(t, "Roy", l)

	f, l = nameFromParts("Anne Marie Roy", "anne@example.com")
	assert.Equal(t, "Anne", f)
	assert.Equal(t, "Marie Roy", l)

	f, l = nameFromParts("Anne", "anne@example.com")
	assert.Equal(t, "Anne", f)
	assert.Equal(t, "", l)

	// No display name: the local part stands in for a first name.
	f, l = nameFromParts("", "jdupont@example.com")
	assert.Equal(t, "jdupont", f)
	assert.Equal(t, "", l)
}

func TestReconcileIdempotent(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	r := NewReconciler(s)
	ctx := context.Background()

	p1, err := r.Reconcile(ctx, `"Anne Roy" <anne@example.com>`)
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, "Anne", p1.FirstName)
	assert.Equal(t, AutoGeneratedRole, p1.Role)

	// Same address with a different display spelling resolves to the same row.
	p2, err := r.Reconcile(ctx, `A. Roy <ANNE@example.com>`)
	require.NoError(t, err)
	require.NotNil(t, p2)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, "Anne", p2.FirstName)
}

func TestReconcileUnparseableIsNil(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	r := NewReconciler(s)

	p, err := r.Reconcile(context.Background(), "Undisclosed recipients")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestReconcileList(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	r := NewReconciler(s)

	out, err := r.ReconcileList(context.Background(),
		`"Roy, Anne" <anne@example.com>, marc@example.com, garbage`)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Roy,", out[0].FirstName)
	assert.Equal(t, "marc", out[1].FirstName)
}

func TestSplitAddressList(t *testing.T) {
	parts := splitAddressList(`"Roy, Anne" <a@x.com>, b@x.com`)
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Roy, Anne")
}
