package models

import "time"

// Student defines the student model based on the 'students' table.
// UnlockedVideos is a denormalized copy of the entitlement record and is only
// written by the entitlement store.
type Student struct {
	ID              string        `json:"id" db:"id" example:"5b0f6c1e-0c44-4b5e-9d3c-2f1f2b8a7d10"` // Unique identifier for the student
	Name            string        `json:"name" db:"name" example:"Ana Souza"`                        // Full name
	Login           string        `json:"login" db:"login" example:"ana.souza"`                      // Unique login
	PasswordHash    string        `json:"-" db:"password_hash"`                                      // bcrypt hash (excluded from JSON)
	Email           string        `json:"email,omitempty" db:"email" example:"ana@example.com"`
	Phone           string        `json:"phone,omitempty" db:"phone" example:"+55 11 99999-0000"`
	Address         string        `json:"address,omitempty" db:"address"`
	BirthDate       string        `json:"birthDate,omitempty" db:"birth_date" example:"2010-05-14"`
	CourseStartDate string        `json:"courseStartDate,omitempty" db:"course_start_date" example:"2024-02-01"`
	GuardianName    string        `json:"guardianName,omitempty" db:"guardian_name"`
	GuardianPhone   string        `json:"guardianPhone,omitempty" db:"guardian_phone"`
	Module          int           `json:"module" db:"module" example:"1"` // Current course module
	Status          StudentStatus `json:"status" db:"status" example:"active"`
	Role            Role          `json:"role" db:"role" example:"student"`
	UnlockedVideos  VideoSet      `json:"unlockedVideos" db:"unlocked_videos"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at" example:"2024-01-02T15:30:00Z"`
}

// IsAdmin reports whether the student record belongs to an administrator
func (s *Student) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
