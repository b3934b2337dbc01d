package repository

import (
	"database/sql"
	"fmt"
	"time"

	"Bside/db"
	"Bside/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	GetTracksByReleaseID(releaseID int64) ([]*model.Track, error)
	CountTracks() (int64, error)
	UpdateTrackState(trackID int64, state int8) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, release_id, title, artist, album, position, duration, object_key, cdn_url, state, created_at, updated_at`

// CreateTrack adds a new track to the database.
// A duplicate (release_id, title) pair violates uq_release_title and
// surfaces as an error for the caller to classify.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (release_id, title, artist, album, position, duration, object_key, cdn_url, state, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(track.ReleaseID, track.Title, track.Artist, track.Album, track.Position, track.Duration, track.ObjectKey, track.CDNURL, int8(1), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	track := &model.Track{}
	err := scanTrack(row, track)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetTracksByReleaseID retrieves all live tracks of a release ordered by position.
func (r *mysqlTrackRepository) GetTracksByReleaseID(releaseID int64) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE release_id = ? AND state = 1 ORDER BY position ASC, id ASC`
	rows, err := r.DB.Query(query, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for release ID %d: %w", releaseID, err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track := &model.Track{}
		if err := scanTrack(rows, track); err != nil {
			return nil, fmt.Errorf("failed to scan track in GetTracksByReleaseID: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetTracksByReleaseID: %w", err)
	}

	return tracks, nil
}

// CountTracks returns the number of live tracks in the catalog.
func (r *mysqlTrackRepository) CountTracks() (int64, error) {
	var count int64
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM tracks WHERE state = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// UpdateTrackState 更新曲目状态（0=软删除，1=正常）
func (r *mysqlTrackRepository) UpdateTrackState(trackID int64, state int8) error {
	query := `UPDATE tracks SET state = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateTrackState: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(state, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackState for track ID %d: %w", trackID, err)
	}
	return nil
}

// rowScanner 同时适配 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner, track *model.Track) error {
	var artist, album, cdnURL sql.NullString
	var duration sql.NullFloat64
	err := row.Scan(&track.ID, &track.ReleaseID, &track.Title, &artist, &album, &track.Position, &duration, &track.ObjectKey, &cdnURL, &track.State, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return err
	}
	track.Artist = artist.String
	track.Album = album.String
	track.CDNURL = cdnURL.String
	track.Duration = duration.Float64
	return nil
}
