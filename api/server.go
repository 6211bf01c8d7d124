package api

import (
	"net/http"
	"os"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second
	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout = 15 * time.Second
)

// NewServer builds the HTTP server cmd/api runs. A platform PORT variable
// wins over the configured port.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
