package photo

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

func newProcessor(t *testing.T) (*Processor, string) {
	t.Helper()
	mediaRoot := t.TempDir()
	s, err := store.Open(filepath.Join(mediaRoot, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewProcessor(s, mediaRoot), t.TempDir()
}

// writeJPEG produces a plain JPEG with no EXIF segment.
func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func drain(events chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"b.JPG", "a.cr2", "note.txt", "sub/c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	paths, err := listImages(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "a.cr2"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.JPG"), paths[1])
	assert.Equal(t, filepath.Join(dir, "sub", "c.png"), paths[2])
}

func TestRunFailsFileWithoutExif(t *testing.T) {
	pr, srcDir := newProcessor(t)
	writeJPEG(t, filepath.Join(srcDir, "photo.jpg"))

	events := make(chan Event, 16)
	var res *Result
	var runErr error
	done := make(chan struct{})
	go func() {
		res, runErr = pr.Run(context.Background(), srcDir, ModeAddByPath, 0, events)
		close(done)
	}()
	evs := drain(events)
	<-done

	require.NoError(t, runErr)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.Processed)

	require.NotEmpty(t, evs)
	assert.Equal(t, "error", evs[0].Type)
	assert.Equal(t, "done", evs[len(evs)-1].Type)
}

func TestRunInteractiveSkip(t *testing.T) {
	pr, srcDir := newProcessor(t)
	writeJPEG(t, filepath.Join(srcDir, "photo.jpg"))
	pr.Prompt = func(path string) (*time.Time, error) { return nil, nil }

	events := make(chan Event, 16)
	var res *Result
	done := make(chan struct{})
	go func() {
		res, _ = pr.Run(context.Background(), srcDir, ModeAddInteractive, 0, events)
		close(done)
	}()
	evs := drain(events)
	<-done

	assert.Equal(t, 1, res.Skipped)
	types := eventTypes(evs)
	assert.Contains(t, types, "prompt")
	assert.Contains(t, types, "skip")
}

func TestRunInteractiveImportsWithPromptedDate(t *testing.T) {
	pr, srcDir := newProcessor(t)
	writeJPEG(t, filepath.Join(srcDir, "photo.jpg"))
	captured := time.Date(2022, 7, 14, 15, 0, 0, 0, time.UTC)
	pr.Prompt = func(path string) (*time.Time, error) { return &captured, nil }

	events := make(chan Event, 16)
	var res *Result
	var runErr error
	done := make(chan struct{})
	go func() {
		res, runErr = pr.Run(context.Background(), srcDir, ModeAddInteractive, 3, events)
		close(done)
	}()
	drain(events)
	<-done

	require.NoError(t, runErr)
	assert.Equal(t, 1, res.Processed)

	// Derived file lands under the date layout.
	derived := filepath.Join(pr.MediaRoot, "photos", "2022", "07", "14", "photo.jpg")
	_, err := os.Stat(derived)
	assert.NoError(t, err)

	// An operator-supplied date carries no camera zone: the UTC companion
	// stays unset rather than relabeling the wall clock.
	photos, err := pr.Store.GetPhotosByIDs(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	require.NotNil(t, photos[0].DatetimeOriginal)
	assert.Nil(t, photos[0].DatetimeUTC)
}

func TestRunCleanRemovesDerivedFiles(t *testing.T) {
	pr, srcDir := newProcessor(t)
	writeJPEG(t, filepath.Join(srcDir, "photo.jpg"))
	captured := time.Date(2022, 7, 14, 15, 0, 0, 0, time.UTC)
	pr.Prompt = func(path string) (*time.Time, error) { return &captured, nil }

	events := make(chan Event, 16)
	go pr.Run(context.Background(), srcDir, ModeAddInteractive, 0, events)
	drain(events)

	events = make(chan Event, 16)
	var res *Result
	done := make(chan struct{})
	go func() {
		res, _ = pr.Run(context.Background(), "", ModeClean, 0, events)
		close(done)
	}()
	drain(events)
	<-done

	assert.Equal(t, 1, res.Processed)
	derived := filepath.Join(pr.MediaRoot, "photos", "2022", "07", "14", "photo.jpg")
	_, err := os.Stat(derived)
	assert.True(t, os.IsNotExist(err))
}

func TestRunUnknownMode(t *testing.T) {
	pr, srcDir := newProcessor(t)
	writeJPEG(t, filepath.Join(srcDir, "photo.jpg"))

	events := make(chan Event, 16)
	var res *Result
	done := make(chan struct{})
	go func() {
		res, _ = pr.Run(context.Background(), srcDir, "bogus", 0, events)
		close(done)
	}()
	drain(events)
	<-done

	assert.Equal(t, 1, res.Failed)
}

func TestIsRaw(t *testing.T) {
	assert.True(t, IsRaw("IMG_0001.CR2"))
	assert.True(t, IsRaw("photo.nef"))
	assert.False(t, IsRaw("photo.jpg"))
	assert.False(t, IsRaw("photo"))
}

func eventTypes(evs []Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
