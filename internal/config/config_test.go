package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathsFor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := PathsFor(root)
	if paths.TOMLFile != filepath.Join(root, TOMLFileName) {
		t.Fatalf("TOMLFile = %q", paths.TOMLFile)
	}
	if paths.YAMLFile != filepath.Join(root, YAMLFileName) {
		t.Fatalf("YAMLFile = %q", paths.YAMLFile)
	}
	if paths.ConfigFile != filepath.Join(root, ConfigFileName) {
		t.Fatalf("ConfigFile = %q", paths.ConfigFile)
	}
	if paths.DataFile(FormatYAML) != paths.YAMLFile || paths.DataFile(FormatTOML) != paths.TOMLFile {
		t.Fatalf("DataFile() did not map formats to their files")
	}
	if paths.LockFile() != filepath.Join(root, LockFileName) {
		t.Fatalf("LockFile() = %q", paths.LockFile())
	}

	custom := paths.WithConfigFile("/tmp/other.toml")
	if custom.ConfigFile != "/tmp/other.toml" || custom.TOMLFile != paths.TOMLFile {
		t.Fatalf("WithConfigFile() = %+v", custom)
	}
	if paths.WithConfigFile("").ConfigFile != paths.ConfigFile {
		t.Fatalf("WithConfigFile(\"\") should keep the default")
	}
}

func TestDefaultDirHonorsEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv(DirEnvVar, root)

	if got := DefaultDir(); got != root {
		t.Fatalf("DefaultDir() = %q, expected %q", got, root)
	}
	if got := DefaultPaths().Dir; got != root {
		t.Fatalf("DefaultPaths().Dir = %q, expected %q", got, root)
	}
}

func TestValidateDataDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := ValidateDataDir(root); err != nil {
		t.Fatalf("ValidateDataDir() error = %v", err)
	}
	if err := ValidateDataDir(""); err == nil {
		t.Fatalf("ValidateDataDir(\"\") expected error")
	}
	var missing *MissingDataDirError
	if err := ValidateDataDir(filepath.Join(root, "nope")); !errors.As(err, &missing) {
		t.Fatalf("ValidateDataDir(missing) error = %v, expected MissingDataDirError", err)
	}
	if !strings.Contains(missing.Error(), "nope") {
		t.Fatalf("MissingDataDirError = %q, expected path in message", missing.Error())
	}
	if (&MissingDataDirError{}).Error() != "kaban directory not found" {
		t.Fatalf("MissingDataDirError without dir has unexpected message")
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "file")
	if FileExists(path) {
		t.Fatalf("FileExists() = true before creation")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if !FileExists(path) {
		t.Fatalf("FileExists() = false after creation")
	}
	if FileExists(root) {
		t.Fatalf("FileExists(dir) = true, expected false")
	}
}
