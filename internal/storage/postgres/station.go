package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"aircheck/internal/domain"
)

type StationStore struct {
	db *sqlx.DB
}

func NewStationStore(db *sqlx.DB) *StationStore {
	return &StationStore{db: db}
}

func (s *StationStore) Upsert(ctx context.Context, station *domain.Station) error {
	query := `
		INSERT INTO stations (id, platform_id, name, ascii_name, url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (platform_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			ascii_name = EXCLUDED.ascii_name,
			url = EXCLUDED.url,
			image_url = EXCLUDED.image_url`

	_, err := s.db.ExecContext(ctx, query,
		station.ID,
		station.PlatformID,
		station.Name,
		station.ASCIIName,
		station.URL,
		station.ImageURL,
	)
	return err
}

// ListByPlatform returns every station for a platform ordered by station id.
func (s *StationStore) ListByPlatform(ctx context.Context, platformID string) ([]domain.Station, error) {
	query := `
		SELECT id, platform_id, name, ascii_name, url, image_url
		FROM stations
		WHERE platform_id = $1
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, platformID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var (
			st        domain.Station
			asciiName sql.NullString
			url       sql.NullString
			imageURL  sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.PlatformID, &st.Name, &asciiName, &url, &imageURL); err != nil {
			return nil, err
		}
		if asciiName.Valid {
			st.ASCIIName = &asciiName.String
		}
		if url.Valid {
			st.URL = &url.String
		}
		if imageURL.Valid {
			st.ImageURL = &imageURL.String
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}
