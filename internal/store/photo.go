package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreatePhoto(ctx context.Context, p *model.Photo) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	var gpsLat, gpsLon any
	if p.GPSLatitude != nil {
		gpsLat = *p.GPSLatitude
	}
	if p.GPSLongitude != nil {
		gpsLon = *p.GPSLongitude
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO photos (file_path, file, datetime_original, datetime_utc, camera_make, camera_model,
		                     iso, exposure_time, f_number, focal_length, lens_model,
		                     gps_latitude, gps_longitude, metadata_json, photo_type_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.FilePath, p.File, fmtTimePtr(p.DatetimeOriginal), fmtTimePtr(p.DatetimeUTC),
		p.CameraMake, p.CameraModel, p.ISO, p.ExposureTime, p.FNumber, p.FocalLength,
		p.LensModel, gpsLat, gpsLon, p.MetadataJSON, p.PhotoTypeID, fmtTime(p.CreatedAt))
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

const photoCols = `id, file_path, file, datetime_original, datetime_utc, camera_make, camera_model,
	iso, exposure_time, f_number, focal_length, lens_model, gps_latitude, gps_longitude,
	metadata_json, photo_type_id, created_at`

func scanPhoto(scan func(...any) error) (*model.Photo, error) {
	var p model.Photo
	var dtOrig, dtUTC sql.NullString
	var lat, lon sql.NullFloat64
	var created string
	err := scan(&p.ID, &p.FilePath, &p.File, &dtOrig, &dtUTC, &p.CameraMake, &p.CameraModel,
		&p.ISO, &p.ExposureTime, &p.FNumber, &p.FocalLength, &p.LensModel, &lat, &lon,
		&p.MetadataJSON, &p.PhotoTypeID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.DatetimeOriginal = parseTimeNull(dtOrig)
	p.DatetimeUTC = parseTimeNull(dtUTC)
	if lat.Valid {
		p.GPSLatitude = &lat.Float64
	}
	if lon.Valid {
		p.GPSLongitude = &lon.Float64
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func (s *Store) GetPhoto(ctx context.Context, id int64) (*model.Photo, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+photoCols+` FROM photos WHERE id = ?`, id)
	return scanPhoto(row.Scan)
}

func (s *Store) GetPhotosByIDs(ctx context.Context, ids []int64) ([]model.Photo, error) {
	var out []model.Photo
	for _, id := range ids {
		p, err := s.GetPhoto(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Store) PhotoExistsByPath(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM photos WHERE file_path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// PhotoExistsByMinute reports a collision on the EXIF datetime truncated to
// the minute, the duplicate rule for add_by_timestamp mode.
func (s *Store) PhotoExistsByMinute(ctx context.Context, t time.Time) (bool, error) {
	minute := t.Truncate(time.Minute)
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM photos WHERE datetime_original >= ? AND datetime_original < ?`,
		fmtTime(minute), fmtTime(minute.Add(time.Minute))).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// DeleteAllPhotos implements clean mode; returns the derived file paths so
// the caller can remove them from disk.
func (s *Store) DeleteAllPhotos(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT file FROM photos WHERE file != ''`)
	if err != nil {
		return nil, err
	}
	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			return nil, err
		}
		files = append(files, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM photos`); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Store) CreatePhotoDocument(ctx context.Context, d *model.PhotoDocument) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO photo_documents (title, description, author_protagonist_id, ai_analysis, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			d.Title, d.Description, nullInt(d.AuthorProtagonistID), d.AIAnalysis, fmtTime(d.CreatedAt))
		if err != nil {
			return err
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for i, pid := range d.PhotoIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO photo_document_photos (photo_document_id, photo_id, position) VALUES (?, ?, ?)`,
				d.ID, pid, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetPhotoDocument(ctx context.Context, id int64) (*model.PhotoDocument, error) {
	var d model.PhotoDocument
	var authorID sql.NullInt64
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, description, author_protagonist_id, ai_analysis, created_at
		 FROM photo_documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.Description, &authorID, &d.AIAnalysis, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.AuthorProtagonistID = int64Ptr(authorID)
	d.CreatedAt = parseTime(created)
	if d.AuthorProtagonistID != nil {
		d.Author, _ = s.GetProtagonist(ctx, *d.AuthorProtagonistID)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT photo_id FROM photo_document_photos WHERE photo_document_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		d.PhotoIDs = append(d.PhotoIDs, pid)
	}
	return &d, rows.Err()
}

func (s *Store) UpdatePhotoDocumentAnalysis(ctx context.Context, id int64, analysis string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE photo_documents SET ai_analysis = ? WHERE id = ?`, analysis, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
