package cli

import (
	"os"
	"path/filepath"
)

const (
	// DefaultBaseDir is the voxterm home directory name.
	DefaultBaseDir = ".voxterm"
	// DefaultConfigFile is the bootstrap config filename.
	DefaultConfigFile = "config.yaml"
)

// Paths resolves the voxterm directory layout under the user's home.
type Paths struct {
	HomeDir string
}

// NewPaths creates a Paths rooted at the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the voxterm home (~/.voxterm).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the bootstrap config path (~/.voxterm/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the embedded database directory (~/.voxterm/data).
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// LogDir returns the log directory (~/.voxterm/logs).
func (p *Paths) LogDir() string {
	return filepath.Join(p.BaseDir(), "logs")
}

// ExportDir returns the default history export directory
// (~/.voxterm/exports).
func (p *Paths) ExportDir() string {
	return filepath.Join(p.BaseDir(), "exports")
}

// EnsureBaseDir creates the voxterm home if it doesn't exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureDataDir creates the database directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0755)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func (p *Paths) EnsureLogDir() error {
	return os.MkdirAll(p.LogDir(), 0755)
}

// EnsureExportDir creates the export directory if it doesn't exist.
func (p *Paths) EnsureExportDir() error {
	return os.MkdirAll(p.ExportDir(), 0755)
}

// LogPath returns a path within the log directory.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogDir(), name)
}
