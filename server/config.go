package server

// Config is the HTTP server configuration.
type Config struct {
	// Address to listen on (e.g., ":8000")
	ListenAddr string

	// Debug mounts the pprof handlers under /debug/pprof.
	Debug bool
}
