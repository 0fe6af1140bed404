package photo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCFromOffset(t *testing.T) {
	naive := time.Date(2022, 7, 14, 15, 0, 0, 0, time.UTC)

	got := utcFromOffset(naive, "+02:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2022, 7, 14, 13, 0, 0, 0, time.UTC), got.UTC())

	got = utcFromOffset(naive, "-05:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2022, 7, 14, 20, 0, 0, 0, time.UTC), got.UTC())
}

func TestUTCFromOffsetAbsentOrMalformed(t *testing.T) {
	naive := time.Date(2022, 7, 14, 15, 0, 0, 0, time.UTC)
	assert.Nil(t, utcFromOffset(naive, ""))
	assert.Nil(t, utcFromOffset(naive, "quelque part"))
}

func TestOffsetTimeOriginalMissing(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/photo.jpg"
	writeJPEG(t, path)
	assert.Empty(t, offsetTimeOriginal(path))
}
