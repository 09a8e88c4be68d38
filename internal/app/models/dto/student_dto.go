package dto

import (
	"time"

	"github.com/yigit/musicschool/internal/app/models"
)

// CreateStudentRequest represents the data needed to register a student.
// Entitlements are managed separately.
type CreateStudentRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100" example:"Ana Souza"`
	Login           string `json:"login" binding:"required,login" example:"ana.souza"`
	Password        string `json:"password" binding:"required,min=6" example:"secret123"`
	Email           string `json:"email" binding:"omitempty,email" example:"ana@example.com"`
	Phone           string `json:"phone" example:"+55 11 99999-0000"`
	Address         string `json:"address"`
	BirthDate       string `json:"birthDate" binding:"omitempty,isodate" example:"2010-05-14"`
	CourseStartDate string `json:"courseStartDate" binding:"omitempty,isodate" example:"2024-02-01"`
	GuardianName    string `json:"guardianName"`
	GuardianPhone   string `json:"guardianPhone"`
	Module          int    `json:"module" binding:"min=0" example:"1"`
	Status          string `json:"status" binding:"omitempty,oneof=active inactive" example:"active"`
	Role            string `json:"role" binding:"omitempty,oneof=admin student" example:"student"`
}

// UpdateStudentRequest represents a full profile update. An empty password
// keeps the current one.
type UpdateStudentRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100" example:"Ana Souza"`
	Login           string `json:"login" binding:"required,login" example:"ana.souza"`
	Password        string `json:"password" binding:"omitempty,min=6"`
	Email           string `json:"email" binding:"omitempty,email" example:"ana@example.com"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	BirthDate       string `json:"birthDate" binding:"omitempty,isodate"`
	CourseStartDate string `json:"courseStartDate" binding:"omitempty,isodate"`
	GuardianName    string `json:"guardianName"`
	GuardianPhone   string `json:"guardianPhone"`
	Module          int    `json:"module" binding:"min=0"`
	Status          string `json:"status" binding:"omitempty,oneof=active inactive"`
	Role            string `json:"role" binding:"omitempty,oneof=admin student"`
}

// StudentResponse is the public view of a student
type StudentResponse struct {
	ID              string    `json:"id" example:"5b0f6c1e-0c44-4b5e-9d3c-2f1f2b8a7d10"`
	Name            string    `json:"name" example:"Ana Souza"`
	Login           string    `json:"login" example:"ana.souza"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	BirthDate       string    `json:"birthDate,omitempty"`
	CourseStartDate string    `json:"courseStartDate,omitempty"`
	GuardianName    string    `json:"guardianName,omitempty"`
	GuardianPhone   string    `json:"guardianPhone,omitempty"`
	Module          int       `json:"module" example:"1"`
	Status          string    `json:"status" example:"active"`
	Role            string    `json:"role" example:"student"`
	UnlockedVideos  []int     `json:"unlockedVideos"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// StudentListResponse represents a page of students
type StudentListResponse struct {
	Students   []StudentResponse `json:"students"`
	Pagination PaginationInfo    `json:"pagination"`
}

// NewStudentResponse converts a student model to its response form
func NewStudentResponse(student *models.Student) StudentResponse {
	if student == nil {
		return StudentResponse{UnlockedVideos: []int{}}
	}
	return StudentResponse{
		ID:              student.ID,
		Name:            student.Name,
		Login:           student.Login,
		Email:           student.Email,
		Phone:           student.Phone,
		Address:         student.Address,
		BirthDate:       student.BirthDate,
		CourseStartDate: student.CourseStartDate,
		GuardianName:    student.GuardianName,
		GuardianPhone:   student.GuardianPhone,
		Module:          student.Module,
		Status:          string(student.Status),
		Role:            string(student.Role),
		UnlockedVideos:  student.UnlockedVideos.Ints(),
		CreatedAt:       student.CreatedAt,
		UpdatedAt:       student.UpdatedAt,
	}
}

// NewStudentResponses converts a list of students
func NewStudentResponses(students []*models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		responses = append(responses, NewStudentResponse(s))
	}
	return responses
}
