package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aircheck/internal/domain"
)

type ProgramStore struct {
	db *sqlx.DB
}

func NewProgramStore(db *sqlx.DB) *ProgramStore {
	return &ProgramStore{db: db}
}

func (s *ProgramStore) Upsert(ctx context.Context, sourceID string, p *domain.Program) (int64, error) {
	var rawData []byte
	if p.RawData != nil {
		var err error
		rawData, err = json.Marshal(p.RawData)
		if err != nil {
			return 0, fmt.Errorf("marshal raw_data: %w", err)
		}
	}

	query := `
		INSERT INTO programs (
			source_id, program_id, station_id, name, url, description,
			information, performers, copyright, episode_id, episode_name,
			datetime, duration, ascii_name, guests, image_url, is_video, raw_data
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (source_id, episode_id) DO UPDATE SET
			program_id = EXCLUDED.program_id,
			station_id = EXCLUDED.station_id,
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			description = EXCLUDED.description,
			information = EXCLUDED.information,
			performers = EXCLUDED.performers,
			copyright = EXCLUDED.copyright,
			episode_name = EXCLUDED.episode_name,
			datetime = EXCLUDED.datetime,
			duration = EXCLUDED.duration,
			ascii_name = EXCLUDED.ascii_name,
			guests = EXCLUDED.guests,
			image_url = EXCLUDED.image_url,
			is_video = EXCLUDED.is_video,
			raw_data = EXCLUDED.raw_data
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		sourceID,
		p.ID,
		p.StationID,
		p.Name,
		p.URL,
		p.Description,
		p.Information,
		pq.Array(p.Performers),
		p.Copyright,
		p.EpisodeID,
		p.EpisodeName,
		p.Datetime,
		p.Duration,
		p.ASCIIName,
		pq.Array(p.Guests),
		p.ImageURL,
		p.IsVideo,
		rawData,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetExistingByEpisodeIDs returns broadcast times of already-stored episodes
// for a source, keyed by episode id.
func (s *ProgramStore) GetExistingByEpisodeIDs(ctx context.Context, sourceID string, ids []int64) (map[int64]time.Time, error) {
	if len(ids) == 0 {
		return make(map[int64]time.Time), nil
	}

	query := `SELECT episode_id, datetime FROM programs WHERE source_id = $1 AND episode_id = ANY($2)`

	rows, err := s.db.QueryContext(ctx, query, sourceID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]time.Time)
	for rows.Next() {
		var episodeID int64
		var dt time.Time
		if err := rows.Scan(&episodeID, &dt); err != nil {
			return nil, err
		}
		result[episodeID] = dt
	}

	return result, rows.Err()
}

// ListBySource returns every stored program for a source in insertion order.
// An empty sourceID lists the whole catalog.
func (s *ProgramStore) ListBySource(ctx context.Context, sourceID string) ([]domain.Program, error) {
	query := `
		SELECT program_id, station_id, name, url, description, information,
		       performers, copyright, episode_id, episode_name, datetime,
		       duration, ascii_name, guests, image_url, is_video, raw_data
		FROM programs`
	args := []any{}
	if sourceID != "" {
		query += " WHERE source_id = $1"
		args = append(args, sourceID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func scanProgram(rows *sql.Rows) (domain.Program, error) {
	var (
		p          domain.Program
		stationID  sql.NullString
		performers pq.StringArray
		duration   sql.NullInt64
		asciiName  sql.NullString
		guests     pq.StringArray
		imageURL   sql.NullString
		rawData    []byte
	)
	err := rows.Scan(
		&p.ID,
		&stationID,
		&p.Name,
		&p.URL,
		&p.Description,
		&p.Information,
		&performers,
		&p.Copyright,
		&p.EpisodeID,
		&p.EpisodeName,
		&p.Datetime,
		&duration,
		&asciiName,
		&guests,
		&imageURL,
		&p.IsVideo,
		&rawData,
	)
	if err != nil {
		return domain.Program{}, err
	}

	if stationID.Valid {
		p.StationID = &stationID.String
	}
	if len(performers) > 0 {
		p.Performers = []string(performers)
	}
	if duration.Valid {
		d := int(duration.Int64)
		p.Duration = &d
	}
	if asciiName.Valid {
		p.ASCIIName = &asciiName.String
	}
	if len(guests) > 0 {
		p.Guests = []string(guests)
	}
	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &p.RawData); err != nil {
			return domain.Program{}, fmt.Errorf("unmarshal raw_data: %w", err)
		}
	}
	return p, nil
}
