package entities

import "fmt"

// CodeSequence is a per-prefix counter row, e.g. "WO-2026" with LastValue 42
type CodeSequence struct {
	Prefix    string `gorm:"primaryKey;size:50"`
	LastValue int64  `gorm:"not null;default:0"`
}

// TableName sets the table for gorm-backed sequences
func (CodeSequence) TableName() string {
	return "craftsman_code_sequence"
}

// String renders "WO-2026 -> 42"
func (s CodeSequence) String() string {
	return fmt.Sprintf("%s -> %d", s.Prefix, s.LastValue)
}

// FormatCode renders a sequence value as "{prefix}-{00042}"
func FormatCode(prefix string, value int64) string {
	return fmt.Sprintf("%s-%05d", prefix, value)
}
