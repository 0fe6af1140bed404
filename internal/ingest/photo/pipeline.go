package photo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Processing modes of the batch runner.
const (
	ModeAddByPath      = "add_by_path"
	ModeAddByTimestamp = "add_by_timestamp"
	ModeAddInteractive = "add_interactive"
	ModeClean          = "clean"
)

// Event is one progress line of a batch run, rendered as HTML for the SSE
// stream and the CLI.
type Event struct {
	Type string // "progress", "skip", "error", "prompt", "done"
	HTML string
	Path string
}

// DatePrompt supplies a capture date for a file with no usable EXIF date.
// Interactive mode blocks on it; returning nil skips the file.
type DatePrompt func(path string) (*time.Time, error)

type Processor struct {
	Store     *store.Store
	MediaRoot string
	Prompt    DatePrompt
}

func NewProcessor(s *store.Store, mediaRoot string) *Processor {
	return &Processor{Store: s, MediaRoot: mediaRoot}
}

// Result counts one batch run.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true,
}

// Run processes every image under sourceDir in lexicographic order, emitting
// one event per file. Format errors skip the file and continue the batch.
func (pr *Processor) Run(ctx context.Context, sourceDir, mode string, photoTypeID int, events chan<- Event) (*Result, error) {
	defer close(events)

	if mode == ModeClean {
		return pr.clean(ctx, events)
	}

	paths, err := listImages(sourceDir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		switch outcome, err := pr.processOne(ctx, path, mode, photoTypeID, events); {
		case err != nil:
			res.Failed++
			log.Printf("photo: %s failed: %v", path, err)
			events <- Event{Type: "error", Path: path,
				HTML: fmt.Sprintf("<p class=\"error\">Échec: %s — %v</p>", filepath.Base(path), err)}
		case outcome:
			res.Processed++
		default:
			res.Skipped++
		}
	}
	events <- Event{Type: "done",
		HTML: fmt.Sprintf("<p>Terminé: %d traitées, %d ignorées, %d en échec.</p>",
			res.Processed, res.Skipped, res.Failed)}
	return res, nil
}

// processOne returns (true, nil) when imported, (false, nil) when skipped.
func (pr *Processor) processOne(ctx context.Context, path, mode string, photoTypeID int, events chan<- Event) (bool, error) {
	meta, err := ReadMeta(path)
	if err != nil {
		if mode != ModeAddInteractive {
			return false, err
		}
		// Interactive mode tolerates files without EXIF; the operator
		// supplies the date below.
		meta = &Meta{}
	}

	switch mode {
	case ModeAddByPath:
		exists, err := pr.Store.PhotoExistsByPath(ctx, path)
		if err != nil {
			return false, err
		}
		if exists {
			events <- Event{Type: "skip", Path: path,
				HTML: fmt.Sprintf("<p>Déjà importée (chemin): %s</p>", filepath.Base(path))}
			return false, nil
		}

	case ModeAddByTimestamp:
		if meta.DatetimeOriginal == nil {
			return false, fmt.Errorf("no exif date for timestamp dedup")
		}
		exists, err := pr.Store.PhotoExistsByMinute(ctx, *meta.DatetimeOriginal)
		if err != nil {
			return false, err
		}
		if exists {
			events <- Event{Type: "skip", Path: path,
				HTML: fmt.Sprintf("<p>Déjà importée (horodatage): %s</p>", filepath.Base(path))}
			return false, nil
		}

	case ModeAddInteractive:
		if meta.DatetimeOriginal == nil {
			if pr.Prompt == nil {
				return false, fmt.Errorf("interactive mode without a date prompt")
			}
			events <- Event{Type: "prompt", Path: path,
				HTML: fmt.Sprintf("<p>Date requise pour %s</p>", filepath.Base(path))}
			dt, err := pr.Prompt(path)
			if err != nil {
				return false, err
			}
			if dt == nil {
				events <- Event{Type: "skip", Path: path,
					HTML: fmt.Sprintf("<p>Ignorée par l'opérateur: %s</p>", filepath.Base(path))}
				return false, nil
			}
			meta.DatetimeOriginal = dt
		}
		exists, err := pr.Store.PhotoExistsByPath(ctx, path)
		if err != nil {
			return false, err
		}
		if exists {
			events <- Event{Type: "skip", Path: path,
				HTML: fmt.Sprintf("<p>Déjà importée: %s</p>", filepath.Base(path))}
			return false, nil
		}

	default:
		return false, fmt.Errorf("unknown mode %q", mode)
	}

	rel, err := DeriveWebJPEG(path, pr.MediaRoot, meta.DatetimeOriginal)
	if err != nil {
		return false, err
	}

	p := &model.Photo{
		FilePath:         path,
		File:             rel,
		DatetimeOriginal: meta.DatetimeOriginal,
		CameraMake:       meta.CameraMake,
		CameraModel:      meta.CameraModel,
		ISO:              meta.ISO,
		ExposureTime:     meta.ExposureTime,
		FNumber:          meta.FNumber,
		FocalLength:      meta.FocalLength,
		LensModel:        meta.LensModel,
		GPSLatitude:      meta.GPSLatitude,
		GPSLongitude:     meta.GPSLongitude,
		MetadataJSON:     meta.RawJSON,
		PhotoTypeID:      photoTypeID,
	}
	p.DatetimeUTC = meta.DatetimeUTC
	if err := pr.Store.CreatePhoto(ctx, p); err != nil {
		return false, err
	}

	events <- Event{Type: "progress", Path: path,
		HTML: fmt.Sprintf("<p>Importée: %s → %s</p>", filepath.Base(path), rel)}
	return true, nil
}

// clean deletes every photo row and its derived file. Source files are never
// touched.
func (pr *Processor) clean(ctx context.Context, events chan<- Event) (*Result, error) {
	files, err := pr.Store.DeleteAllPhotos(ctx)
	if err != nil {
		return nil, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(filepath.Join(pr.MediaRoot, f)); err != nil && !os.IsNotExist(err) {
			log.Printf("photo: failed to remove derived file %s: %v", f, err)
			continue
		}
		removed++
	}
	events <- Event{Type: "done",
		HTML: fmt.Sprintf("<p>Nettoyage: %d fiches supprimées, %d fichiers dérivés retirés.</p>", len(files), removed)}
	return &Result{Processed: len(files)}, nil
}

func listImages(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if imageExtensions[ext] || rawExtensions[ext] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
