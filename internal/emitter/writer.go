// Package emitter writes rendered modules to disk.
package emitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/log"
)

// Options controls how generated files are written.
type Options struct {
	OutDir string // required; target directory
	Force  bool   // overwrite files whose content differs
	DryRun bool   // plan only
	Check  bool   // fail if any file would change; never writes
	Logger *log.Logger
}

// FileStatus says what Write does with a planned file.
type FileStatus string

const (
	StatusCreate    FileStatus = "create"
	StatusUpdate    FileStatus = "update"
	StatusUnchanged FileStatus = "unchanged"
)

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
	Status  FileStatus
}

// Result returns the planned files in path order.
type Result struct {
	OutDir  string
	Planned []PlannedFile
	Written int
}

var (
	ErrStale    = errors.New("generated files are out of date")
	ErrConflict = errors.New("existing file differs")
)

// StaleError is returned in check mode and carries a unified diff of every
// file that would change.
type StaleError struct {
	Files []string
	Diff  string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrStale, strings.Join(e.Files, ", "))
}

func (e *StaleError) Is(target error) bool { return target == ErrStale }

const fileMode os.FileMode = 0o644

// Write plans files (relative slash paths) under opts.OutDir and writes the
// ones that are new or changed. Identical files are left untouched.
func Write(ctx context.Context, files map[string][]byte, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("emitter: resolve output directory: %w", err)
	}
	if err := validateOutputDirectory(abs); err != nil {
		return nil, err
	}

	res := &Result{OutDir: abs}
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	var conflicts, stale []string
	var diff strings.Builder
	for _, rel := range rels {
		if err := validateRelPath(rel); err != nil {
			return nil, err
		}
		content := files[rel]
		existing, err := os.ReadFile(filepath.Join(abs, filepath.FromSlash(rel)))
		status := StatusCreate
		switch {
		case err == nil && bytes.Equal(existing, content):
			status = StatusUnchanged
		case err == nil:
			status = StatusUpdate
			conflicts = append(conflicts, rel)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("emitter: read %s: %w", rel, err)
		}
		if status != StatusUnchanged {
			stale = append(stale, rel)
			diff.WriteString(udiff.Unified("a/"+rel, "b/"+rel, string(existing), string(content)))
		}
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(content), Mode: fileMode, Status: status})
	}

	if opts.Check {
		if len(stale) > 0 {
			return res, &StaleError{Files: stale, Diff: diff.String()}
		}
		return res, nil
	}
	if len(conflicts) > 0 && !opts.Force {
		return res, fmt.Errorf("%w: %s (use --force to overwrite)", ErrConflict, strings.Join(conflicts, ", "))
	}
	if opts.DryRun {
		return res, nil
	}

	for _, pf := range res.Planned {
		if pf.Status == StatusUnchanged {
			logger.Debug("unchanged", "file", pf.RelPath)
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := writeFileAtomic(abs, pf.RelPath, files[pf.RelPath]); err != nil {
			return res, fmt.Errorf("emitter: write file %s: %w", pf.RelPath, err)
		}
		res.Written++
		logger.Debug("wrote", "file", pf.RelPath, "status", string(pf.Status), "bytes", pf.Size)
	}
	return res, nil
}

func validateOutputDirectory(absPath string) error {
	stat, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory %q: %w", absPath, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("output path %q is not a directory", absPath)
	}
	return nil
}

// validateRelPath keeps every planned file inside the output directory.
func validateRelPath(rel string) error {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if rel == "" || filepath.IsAbs(rel) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("emitter: invalid output path %q", rel)
	}
	return nil
}

// writeFileAtomic writes a file using a temporary file and rename.
func writeFileAtomic(baseDir, relPath string, content []byte) error {
	fullPath := filepath.Join(baseDir, filepath.FromSlash(relPath))
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-swagger2mixin-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", relPath, err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("write content to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(fileMode); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("atomic rename %s to %s: %w", tmpPath, fullPath, err)
	}
	success = true
	return nil
}
