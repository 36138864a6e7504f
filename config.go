package main

// Config holds the application configuration
type Config struct {
	Folder   string // Working folder holding the exported photos and their sidecars
	Verbose  bool
	JSONLogs bool // Log JSON lines instead of console formatting
	Progress bool // Show a progress bar on stderr while processing
}

// Quarantine subfolders created under Config.Folder
const (
	DuplicateDir = "duplicate"
	UndefinedDir = "undefined"
)
