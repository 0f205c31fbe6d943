// Package discovery enumerates the source files of an acquired repository.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultMaxFiles is the admission ceiling applied when Options.MaxFiles is zero.
const DefaultMaxFiles = 500

// ErrDiscoveryLimitExceeded is returned when a repository holds more eligible
// files than the configured ceiling.
var ErrDiscoveryLimitExceeded = errors.New("repository too large to ingest")

// Extensions is the allow-list of file extensions eligible for ingestion.
var Extensions = []string{".js", ".mjs", ".ts", ".tsx", ".jsx", ".cjs", ".py", ".ipynb"}

// ExcludedDirs are directory names that are never descended into.
var ExcludedDirs = []string{".git", "node_modules"}

// File is an eligible source file found under the repository root.
type File struct {
	// Path is relative to the repository root, forward-slash separated.
	Path string
	// AbsPath is where the file lives on disk.
	AbsPath string
}

// Options tunes discovery. The zero value applies the default ceiling and no
// extra ignore rules.
type Options struct {
	MaxFiles         int
	Ignore           []string // glob patterns matched against relative slash paths
	RespectGitignore bool     // honor the repository's root .gitignore
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery walks a repository and returns its eligible files.
type FileDiscovery struct {
	rootDir        string
	maxFiles       int
	ignorePatterns []compiledPattern
	gitignore      *ignore.GitIgnore
	extensions     map[string]bool
	excludedDirs   map[string]bool
}

// New creates a file discovery instance rooted at rootDir.
func New(rootDir string, opts Options) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir:      rootDir,
		maxFiles:     opts.MaxFiles,
		extensions:   make(map[string]bool, len(Extensions)),
		excludedDirs: make(map[string]bool, len(ExcludedDirs)),
	}
	if fd.maxFiles <= 0 {
		fd.maxFiles = DefaultMaxFiles
	}
	for _, ext := range Extensions {
		fd.extensions[ext] = true
	}
	for _, dir := range ExcludedDirs {
		fd.excludedDirs[dir] = true
	}

	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		fd.ignorePatterns = append(fd.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	if opts.RespectGitignore {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(rootDir, ".gitignore"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .gitignore: %w", err)
		}
		fd.gitignore = gi
	}

	return fd, nil
}

// Discover walks the directory tree in lexical order and returns the eligible
// files. The walk stops with ErrDiscoveryLimitExceeded as soon as the ceiling
// is passed, so nothing downstream ever sees a partial list.
func (fd *FileDiscovery) Discover(ctx context.Context) ([]File, error) {
	files := []File{}

	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path == fd.rootDir {
			return nil
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if fd.excludedDirs[d.Name()] || fd.shouldIgnore(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !fd.extensions[filepath.Ext(d.Name())] || fd.shouldIgnore(relPath, false) {
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}

		files = append(files, File{Path: relPath, AbsPath: path})
		if len(files) > fd.maxFiles {
			return fmt.Errorf("%w: more than %d eligible files", ErrDiscoveryLimitExceeded, fd.maxFiles)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Discover is a convenience wrapper around New and FileDiscovery.Discover.
func Discover(ctx context.Context, rootDir string, opts Options) ([]File, error) {
	fd, err := New(rootDir, opts)
	if err != nil {
		return nil, err
	}
	return fd.Discover(ctx)
}

// PathSet indexes the relative paths of files for exact-match lookups.
func PathSet(files []File) map[string]bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f.Path] = true
	}
	return set
}

// shouldIgnore checks the configured glob patterns and the .gitignore.
func (fd *FileDiscovery) shouldIgnore(relPath string, isDir bool) bool {
	if fd.gitignore != nil {
		if fd.gitignore.MatchesPath(relPath) {
			return true
		}
		if isDir && fd.gitignore.MatchesPath(relPath+"/") {
			return true
		}
	}

	for _, cp := range fd.ignorePatterns {
		if cp.glob.Match(relPath) {
			return true
		}
		// "dist/**" should also prune the dist directory itself
		if isDir && cp.glob.Match(relPath+"/**") {
			return true
		}
	}

	return false
}

// isRegular reports whether the entry is a regular file, following symlinks.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// HasExtension reports whether name carries one of the given extensions.
func HasExtension(name string, exts ...string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
