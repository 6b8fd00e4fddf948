package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDirName = ".kaban"
	TOMLFileName   = "my_kaban_tasks.toml"
	YAMLFileName   = "my_kaban_tasks.yaml"
	ConfigFileName = "config.toml"
	LockFileName   = ".kaban.lock"

	DirEnvVar = "KABAN_DIR"
)

// MissingDataDirError reports absence of the kaban directory.
type MissingDataDirError struct {
	Dir string
}

func (e *MissingDataDirError) Error() string {
	if e == nil || e.Dir == "" {
		return "kaban directory not found"
	}
	return fmt.Sprintf("no kaban directory at %s", e.Dir)
}

// Paths are the files kaban reads and writes for one invocation.
type Paths struct {
	Dir        string
	TOMLFile   string
	YAMLFile   string
	ConfigFile string
}

// DefaultDir returns $KABAN_DIR, or ~/.kaban when it is unset.
func DefaultDir() string {
	if dir := os.Getenv(DirEnvVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// DefaultPaths derives every path from DefaultDir.
func DefaultPaths() Paths {
	return PathsFor(DefaultDir())
}

// PathsFor lays out the standard file names under dir.
func PathsFor(dir string) Paths {
	return Paths{
		Dir:        dir,
		TOMLFile:   DataDirFilePath(dir, TOMLFileName),
		YAMLFile:   DataDirFilePath(dir, YAMLFileName),
		ConfigFile: DataDirFilePath(dir, ConfigFileName),
	}
}

// WithConfigFile overrides the config file location (the --config flag).
func (p Paths) WithConfigFile(path string) Paths {
	if path != "" {
		p.ConfigFile = path
	}
	return p
}

// DataFile returns the data file written for format.
func (p Paths) DataFile(format Format) string {
	if format == FormatYAML {
		return p.YAMLFile
	}
	return p.TOMLFile
}

func (p Paths) LockFile() string {
	return DataDirFilePath(p.Dir, LockFileName)
}

// DataDirFilePath formats a path under the provided data directory.
func DataDirFilePath(dataDir, fileName string) string {
	return filepath.Join(dataDir, fileName)
}

// ValidateDataDir validates that dataDir is non-empty and exists.
func ValidateDataDir(dataDir string) error {
	if dataDir == "" {
		return errors.New("data directory must not be empty")
	}
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return &MissingDataDirError{Dir: dataDir}
	}
	return nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
