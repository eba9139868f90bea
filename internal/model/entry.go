package model

import "time"

// DateLayout is the wire format of an entry date.
const DateLayout = "2006-01-02"

// Entry is a single dated, tagged journal note.
type Entry struct {
	ID             uint      `gorm:"primaryKey"`
	Date           time.Time `gorm:"index"` // UTC midnight
	Type           Tag
	Text           string
	IdempotencyKey *string `gorm:"uniqueIndex"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DateString formats the entry date as YYYY-MM-DD.
func (e Entry) DateString() string {
	return e.Date.UTC().Format(DateLayout)
}
