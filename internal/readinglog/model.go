package readinglog

import (
	"encoding/json"
	"time"
)

// ReadingLog records a user's reading sessions of one fic. Ranges holds an
// ordered sequence of interval strings; multiple ranges represent rereads.
type ReadingLog struct {
	LogID      string    `gorm:"column:log_id;primaryKey;size:190;not null"`
	UserID     string    `gorm:"column:user_id;size:190;not null;index:idx_reading_logs_user_fic,priority:1"`
	FicID      string    `gorm:"column:fic_id;size:190;not null;index:idx_reading_logs_user_fic,priority:2"`
	RangesJSON string    `gorm:"column:ranges_json;type:text;not null;default:'[]'"`
	Notes      string    `gorm:"column:notes;type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ReadingLog) TableName() string {
	return "reading_logs"
}

func encodeRanges(ranges []string) (string, error) {
	if ranges == nil {
		ranges = []string{}
	}
	encoded, err := json.Marshal(ranges)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// decodeRanges tolerates corrupt stored payloads: an undecodable column yields
// no ranges, mirroring the silent-skip policy for malformed range strings.
func decodeRanges(raw string) []string {
	var ranges []string
	if err := json.Unmarshal([]byte(raw), &ranges); err != nil {
		return nil
	}
	return ranges
}

// intervals parses the log's stored ranges, skipping malformed entries.
func (l ReadingLog) intervals() []Interval {
	ranges := decodeRanges(l.RangesJSON)
	parsed := make([]Interval, 0, len(ranges))
	for _, raw := range ranges {
		if interval, ok := ParseRange(raw); ok {
			parsed = append(parsed, interval)
		}
	}
	return parsed
}

// LogView is a reading log with its ranges decoded for transport.
type LogView struct {
	LogID     string
	UserID    string
	FicID     string
	Ranges    []string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l ReadingLog) view() LogView {
	ranges := decodeRanges(l.RangesJSON)
	if ranges == nil {
		ranges = []string{}
	}
	return LogView{
		LogID:     l.LogID,
		UserID:    l.UserID,
		FicID:     l.FicID,
		Ranges:    ranges,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
