package photo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	dsoexif "github.com/dsoprea/go-exif/v3"
	"github.com/rwcarlsen/goexif/exif"
)

// Meta is the EXIF subset persisted with each photo. DatetimeOriginal is
// naive, exactly as the camera wrote it; DatetimeUTC is set only when the
// file carries an OffsetTimeOriginal sidecar pinning the camera zone.
type Meta struct {
	DatetimeOriginal *time.Time
	DatetimeUTC      *time.Time
	CameraMake       string
	CameraModel      string
	ISO              int
	ExposureTime     string
	FNumber          string
	FocalLength      string
	LensModel        string
	GPSLatitude      *float64
	GPSLongitude     *float64
	RawJSON          string
}

// ReadMeta extracts the supported EXIF fields. Missing individual tags are
// not errors; only an unreadable EXIF block fails.
func ReadMeta(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("unreadable exif in %s: %w", path, err)
	}

	m := &Meta{}
	if dt, err := x.DateTime(); err == nil {
		naive := time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute(), dt.Second(), 0, time.UTC)
		m.DatetimeOriginal = &naive
		m.DatetimeUTC = utcFromOffset(naive, offsetTimeOriginal(path))
	}
	m.CameraMake = tagString(x, exif.Make)
	m.CameraModel = tagString(x, exif.Model)
	m.LensModel = tagString(x, exif.LensModel)

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			m.ISO = iso
		}
	}
	m.ExposureTime = tagRational(x, exif.ExposureTime)
	m.FNumber = tagRational(x, exif.FNumber)
	m.FocalLength = tagRational(x, exif.FocalLength)

	if lat, lon, err := x.LatLong(); err == nil {
		m.GPSLatitude = &lat
		m.GPSLongitude = &lon
	}

	if raw, err := x.MarshalJSON(); err == nil {
		m.RawJSON = string(raw)
	} else {
		blob, _ := json.Marshal(map[string]string{"make": m.CameraMake, "model": m.CameraModel})
		m.RawJSON = string(blob)
	}
	return m, nil
}

// offsetTimeOriginal reads the EXIF 2.31 timezone sidecar of
// DateTimeOriginal (e.g. "+02:00"). Empty on files from older cameras.
func offsetTimeOriginal(path string) string {
	rawExif, err := dsoexif.SearchFileAndExtractExif(path)
	if err != nil {
		return ""
	}
	entries, _, err := dsoexif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.TagName == "OffsetTimeOriginal" {
			return strings.Trim(e.Formatted, "\x00 ")
		}
	}
	return ""
}

// utcFromOffset anchors the naive camera time in its recorded zone and
// converts to UTC. Returns nil when the offset is absent or malformed.
func utcFromOffset(naive time.Time, offset string) *time.Time {
	if offset == "" {
		return nil
	}
	aware, err := time.Parse("2006:01:02 15:04:05 -07:00",
		naive.Format("2006:01:02 15:04:05")+" "+offset)
	if err != nil {
		return nil
	}
	u := aware.UTC()
	return &u
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

// tagRational renders a rational tag as "num/den" (exposure) or a decimal
// string when the denominator is 1.
func tagRational(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	if den == 1 {
		return fmt.Sprintf("%d", num)
	}
	return fmt.Sprintf("%d/%d", num, den)
}
