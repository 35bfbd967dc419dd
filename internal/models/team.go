package models

import (
	"database/sql"
	"time"
)

// Team represents a team's metadata record from the team directory.
// Conference, organization, division and gender drive result enrichment
// and the read-path filters.
type Team struct {
	ID           int            `db:"id"`
	TeamID       string         `db:"team_id"`
	Name         string         `db:"team_name"`
	Conference   sql.NullString `db:"conference"`
	Organization sql.NullString `db:"organization"`
	Division     sql.NullString `db:"division"`
	Gender       sql.NullString `db:"gender"`
	City         sql.NullString `db:"city"`
	State        sql.NullString `db:"state"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// MetaOrUnknown returns the metadata fields with "Unknown" defaults for
// teams that have no directory entry or incomplete entries.
func (t *Team) MetaOrUnknown() (conference, organization, division, gender string) {
	conference = nullOrUnknown(t.Conference)
	organization = nullOrUnknown(t.Organization)
	division = nullOrUnknown(t.Division)
	gender = nullOrUnknown(t.Gender)
	return
}

func nullOrUnknown(s sql.NullString) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return "Unknown"
}
