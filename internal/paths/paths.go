package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnvVar overrides the global data directory.
	HomeEnvVar = "NAMELENS_HOME"
	// DirName is the per-project and per-user data directory name.
	DirName = ".namelens"

	ConfigFile   = "config.json"
	ManifestFile = "layers.toml"
	LearnedFile  = "learned.json"
	LedgerFile   = "ledger.db"
	LogsSubdir   = "logs"
	DictSubdir   = "dictionaries"
)

// GetHome returns the global data directory: $NAMELENS_HOME, else ~/.namelens.
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(userHome, DirName), nil
}

// ProjectDir returns <root>/.namelens.
func ProjectDir(root string) string {
	return filepath.Join(root, DirName)
}

// EnsureProjectDir creates <root>/.namelens if needed.
func EnsureProjectDir(root string) (string, error) {
	dir := ProjectDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigPath returns the project configuration file.
func ConfigPath(root string) string {
	return filepath.Join(ProjectDir(root), ConfigFile)
}

// ManifestPath returns the project layer manifest.
func ManifestPath(root string) string {
	return filepath.Join(ProjectDir(root), ManifestFile)
}

// LearnedPath returns the project-learned dictionary file.
func LearnedPath(root string) string {
	return filepath.Join(ProjectDir(root), LearnedFile)
}

// LedgerPath returns the usage ledger database.
func LedgerPath(root string) string {
	return filepath.Join(ProjectDir(root), LedgerFile)
}

// LogsDir returns the project log directory.
func LogsDir(root string) string {
	return filepath.Join(ProjectDir(root), LogsSubdir)
}

// ProjectDictionaryDir returns <root>/.namelens/dictionaries, the default
// location of project-fixed layer files.
func ProjectDictionaryDir(root string) string {
	return filepath.Join(ProjectDir(root), DictSubdir)
}

// GlobalLearnedPath returns the user-wide learned dictionary file.
func GlobalLearnedPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, LearnedFile), nil
}

// FindRoot walks up from start looking for a .namelens or .git directory and
// returns start itself when neither is found.
func FindRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for dir := abs; ; {
		for _, marker := range []string{DirName, ".git"} {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where possible.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// Display returns path relative to root when it lies inside it, else path.
func Display(path, root string) string {
	rel, err := CanonicalizePath(path, root)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return rel
}

// Resolve joins a relative path onto root; absolute paths and "~/" paths
// are returned expanded but otherwise unchanged.
func Resolve(root, path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, filepath.FromSlash(path))
}
