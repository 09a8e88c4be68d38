package dto

// LoginRequest represents login credentials
type LoginRequest struct {
	Login    string `json:"login" binding:"required" example:"ana.souza"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn" example:"86400"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse   `json:"token"`
	User  StudentResponse `json:"user"`
}

// MeResponse is the caller's profile with the videos they can play.
// AllVideos is set for administrators, who bypass entitlements.
type MeResponse struct {
	Profile        StudentResponse `json:"profile"`
	UnlockedVideos []int           `json:"unlockedVideos"`
	AllVideos      bool            `json:"allVideos"`
}
