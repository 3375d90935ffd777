package artifacts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/logging"
)

// Artifact is one named raw text blob. Content is normalized UTF-8 and must
// not be modified after the artifact is created.
type Artifact struct {
	// Name is the path relative to the collection root, slash separated
	Name    string
	Dialect Dialect
	Content []byte
}

// New builds an artifact from raw bytes, resolving its dialect from name and
// normalizing its encoding. Errors wrap ErrUnreadable.
func New(name string, raw []byte) (Artifact, error) {
	name = filepath.ToSlash(name)
	d, ok := DialectFor(name)
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s is not a recognized artifact", ErrUnreadable, name)
	}
	content, err := Normalize(raw)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: name, Dialect: d, Content: content}, nil
}

// Collection is what a Reader found in one collection directory.
type Collection struct {
	// Artifacts are the readable artifacts, sorted by name
	Artifacts []Artifact
	// Missing lists expected artifact names that were absent
	Missing []string
	// Diagnostics records unreadable artifacts
	Diagnostics []events.Diagnostic
}

// Reader loads artifacts from a collection directory laid out the way the
// collector writes it: flat text dumps at the root and host logs under logs/.
type Reader struct {
	// RootDir is the collection directory
	RootDir string

	// MaxSize caps how many bytes of one artifact are read; 0 means no cap
	MaxSize int64
}

// NewReader creates a Reader for rootDir.
func NewReader(rootDir string) *Reader {
	return &Reader{RootDir: rootDir}
}

// Read walks the collection directory. Unknown files and hidden entries are
// ignored. Absent expected artifacts go to Missing, artifacts that fail to
// read or decode become artifact_unreadable diagnostics. The only errors
// returned are a missing root directory and cancellation, which is checked
// between artifacts.
func (r *Reader) Read(ctx context.Context) (*Collection, error) {
	logger := logging.New("artifacts")

	info, err := os.Stat(r.RootDir)
	if err != nil {
		return nil, fmt.Errorf("opening collection directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collection path %s is not a directory", r.RootDir)
	}

	col := &Collection{}
	found := make(map[string]bool)

	err = filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectory: its artifacts simply stay missing.
			logger.Debug("skipping path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if shouldSkip(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if relPath != "." && relPath != LogsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := DialectFor(relPath); !ok {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		found[relPath] = true
		a, truncated, err := r.readOne(path, relPath)
		if err != nil {
			logger.Info("artifact unreadable", "artifact", relPath, "error", err)
			col.Diagnostics = append(col.Diagnostics, *events.NewArtifactUnreadable(relPath, err))
			return nil
		}
		if truncated {
			logger.Info("artifact truncated", "artifact", relPath, "max_size", r.MaxSize)
			reason := fmt.Sprintf("artifact larger than %d bytes, content after the limit ignored", r.MaxSize)
			col.Diagnostics = append(col.Diagnostics, *events.NewParseWarning(relPath, string(a.Dialect), 0, reason, ""))
		}
		logger.Debug("artifact loaded", "artifact", relPath, "dialect", a.Dialect, "bytes", len(a.Content))
		col.Artifacts = append(col.Artifacts, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}

	for _, name := range ExpectedNames() {
		if !found[name] {
			col.Missing = append(col.Missing, name)
		}
	}
	sort.Slice(col.Artifacts, func(i, j int) bool { return col.Artifacts[i].Name < col.Artifacts[j].Name })
	logger.Info("collection read",
		"dir", r.RootDir,
		"artifacts", len(col.Artifacts),
		"missing", len(col.Missing),
		"unreadable", len(col.Diagnostics))
	return col, nil
}

// readOne reads and normalizes one artifact, reporting whether MaxSize cut
// it short.
func (r *Reader) readOne(path, relPath string) (Artifact, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	truncated := false
	if r.MaxSize > 0 && int64(len(raw)) > r.MaxSize {
		raw = Truncate(raw, int(r.MaxSize))
		truncated = true
	}
	a, err := New(relPath, raw)
	return a, truncated, err
}

// shouldSkip excludes hidden files and directories.
func shouldSkip(relPath string) bool {
	base := filepath.Base(relPath)
	return relPath != "." && strings.HasPrefix(base, ".")
}
