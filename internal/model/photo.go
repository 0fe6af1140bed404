package model

import "time"

// Photo carries the EXIF datetime exactly as read (naive, no zone), plus an
// aware UTC companion when the file recorded its camera zone. Display always
// uses DatetimeOriginal.
type Photo struct {
	ID               int64      `json:"id"`
	FilePath         string     `json:"file_path"` // absolute path of the source file
	File             string     `json:"file"`      // derived web JPEG, relative to media root
	DatetimeOriginal *time.Time `json:"datetime_original,omitempty"`
	DatetimeUTC      *time.Time `json:"datetime_utc,omitempty"`
	CameraMake       string     `json:"camera_make,omitempty"`
	CameraModel      string     `json:"camera_model,omitempty"`
	ISO              int        `json:"iso,omitempty"`
	ExposureTime     string     `json:"exposure_time,omitempty"`
	FNumber          string     `json:"f_number,omitempty"`
	FocalLength      string     `json:"focal_length,omitempty"`
	LensModel        string     `json:"lens_model,omitempty"`
	GPSLatitude      *float64   `json:"gps_latitude,omitempty"`
	GPSLongitude     *float64   `json:"gps_longitude,omitempty"`
	MetadataJSON     string     `json:"metadata_json,omitempty"`
	PhotoTypeID      int        `json:"photo_type_id"`
	CreatedAt        time.Time  `json:"created_at"`
}

// PhotoDocument groups photos into one documentary artifact, e.g. the three
// pages of a scanned letter.
type PhotoDocument struct {
	ID                  int64        `json:"id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	AuthorProtagonistID *int64       `json:"author_protagonist_id,omitempty"`
	Author              *Protagonist `json:"author,omitempty"`
	AIAnalysis          string       `json:"ai_analysis,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	PhotoIDs            []int64      `json:"photo_ids,omitempty"`
}
