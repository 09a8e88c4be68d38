package dto

import "github.com/yigit/musicschool/internal/app/models"

// ReplaceEntitlementsRequest replaces a student's full video set
type ReplaceEntitlementsRequest struct {
	VideoIDs []int `json:"videoIds" binding:"required,dive,videoid" example:"101,102,103"`
}

// EntitlementsResponse is a student's unlocked videos
type EntitlementsResponse struct {
	StudentID string `json:"studentId" example:"5b0f6c1e-0c44-4b5e-9d3c-2f1f2b8a7d10"`
	VideoIDs  []int  `json:"videoIds" example:"101,102"`
}

// DriftReportResponse lists students whose record copy disagrees with the
// entitlement store
type DriftReportResponse struct {
	Drifts []models.Drift `json:"drifts"`
	Count  int            `json:"count" example:"1"`
}

// RepairResponse lists the students touched by a repair run
type RepairResponse struct {
	Repaired []string `json:"repaired"`
	Count    int      `json:"count" example:"1"`
}
