package main

import (
	"os"

	"github.com/yigit/musicschool/internal/bootstrap"
	"github.com/yigit/musicschool/internal/config"
	"github.com/yigit/musicschool/internal/pkg/logger" // Still needed for initial error logging
	"github.com/yigit/musicschool/internal/server"
)

// @title Music School API
// @version 1.0
// @description Student accounts, video entitlements and lesson playback for the music school

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	configPath := config.GetEnv("CONFIG_PATH", bootstrap.DefaultConfigPath)

	srv, err := server.NewServer(configPath)
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run the server (this blocks until shutdown signal)
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
