package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Teacher is the read snapshot of an instructor.
type Teacher struct {
	ID                  string         `db:"id" json:"id"`
	FullName            string         `db:"full_name" json:"full_name"`
	Email               string         `db:"email" json:"email"`
	Specializations     pq.StringArray `db:"specializations" json:"specializations"`
	MaxStudentsPerClass int            `db:"max_students_per_class" json:"max_students_per_class"`
	Active              bool           `db:"active" json:"active"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSpecialization matches case-insensitively.
func (t Teacher) HasSpecialization(name string) bool {
	for _, s := range t.Specializations {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// HasAllSpecializations reports whether every required specialization is covered.
func (t Teacher) HasAllSpecializations(required []string) bool {
	for _, r := range required {
		if !t.HasSpecialization(r) {
			return false
		}
	}
	return true
}

// FitsClassSize treats a zero limit as unlimited.
func (t Teacher) FitsClassSize(size int) bool {
	return t.MaxStudentsPerClass <= 0 || size <= t.MaxStudentsPerClass
}
