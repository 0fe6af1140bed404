package photo

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	dsoexif "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// Derivation parameters for the web JPEG.
const (
	maxWebEdge  = 1600
	jpegQuality = 90
)

var rawExtensions = map[string]bool{
	".cr2": true, ".cr3": true, ".nef": true, ".arw": true,
	".dng": true, ".orf": true, ".rw2": true, ".raf": true,
}

// IsRaw reports whether the file needs the raw decoder before resizing.
func IsRaw(path string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(path))]
}

// DeriveWebJPEG produces the resized JPEG under
// photos/<YYYY>/<MM>/<DD>/<name>.jpg relative to mediaRoot, re-injecting the
// EXIF capture date so the derived file stays self-describing. Returns the
// relative path.
func DeriveWebJPEG(srcPath, mediaRoot string, taken *time.Time) (string, error) {
	img, err := decodeSource(srcPath)
	if err != nil {
		return "", err
	}
	fitted := imaging.Fit(img, maxWebEdge, maxWebEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", err
	}
	data := buf.Bytes()
	if taken != nil {
		if injected, err := injectDateTimeOriginal(data, *taken); err == nil {
			data = injected
		}
		// A failed injection keeps the plain JPEG; the database still
		// carries the date.
	}

	dateDir := time.Now().UTC()
	if taken != nil {
		dateDir = *taken
	}
	name := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath)) + ".jpg"
	rel := filepath.Join("photos",
		dateDir.Format("2006"), dateDir.Format("01"), dateDir.Format("02"), name)
	abs := filepath.Join(mediaRoot, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

// decodeSource opens the image, shelling out to dcraw for RAW formats. dcraw
// emits a demosaiced TIFF on stdout which the imaging stack decodes.
func decodeSource(path string) (image.Image, error) {
	if !IsRaw(path) {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("undecodable image %s: %w", path, err)
		}
		return img, nil
	}
	cmd := exec.Command("dcraw", "-c", "-T", "-w", path)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dcraw on %s: %v: %s", path, err, stderr.String())
	}
	img, err := imaging.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("undecodable dcraw output for %s: %w", path, err)
	}
	return img, nil
}

// injectDateTimeOriginal writes the EXIF capture date into a derived JPEG.
func injectDateTimeOriginal(data []byte, taken time.Time) ([]byte, error) {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, err
	}
	exifIb, err := dsoexif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return nil, err
	}
	if err := exifIb.SetStandardWithName("DateTimeOriginal", taken.Format("2006:01:02 15:04:05")); err != nil {
		return nil, err
	}
	if err := sl.SetExif(rootIb); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
