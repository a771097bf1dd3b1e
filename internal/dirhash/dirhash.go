// Package dirhash computes content hashes of site directories, honoring
// dockerignore-style patterns so that editor and build leftovers don't change the hash.
package dirhash

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/moby/patternmatcher"
	"go.uber.org/zap"
)

// IgnoreFileName is the name of the ignore file read from the root of a site directory.
const IgnoreFileName = ".cfsignore"

// DefaultLength is the length of the hex encoded hash unless WithLength is used.
const DefaultLength = 12

// Hasher computes a content-based hash of a directory.
type Hasher struct {
	ignoreFile    string
	logs          *zap.Logger
	alwaysInclude map[string]bool
	length        int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithIgnoreFile changes the ignore file name.
func WithIgnoreFile(name string) Option {
	return func(h *Hasher) {
		h.ignoreFile = name
	}
}

// WithLogger sets a logger that receives one debug entry per visited path.
func WithLogger(logs *zap.Logger) Option {
	return func(h *Hasher) {
		h.logs = logs
	}
}

// WithAlwaysInclude sets paths that are always hashed regardless of ignore patterns.
func WithAlwaysInclude(paths ...string) Option {
	return func(h *Hasher) {
		for _, p := range paths {
			h.alwaysInclude[p] = true
		}
	}
}

// WithLength sets the hash output length (0 for the full hash).
func WithLength(n int) Option {
	return func(h *Hasher) {
		h.length = n
	}
}

// New creates a new Hasher with the given options.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		ignoreFile:    IgnoreFileName,
		logs:          zap.NewNop(),
		alwaysInclude: map[string]bool{},
		length:        DefaultLength,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash computes the content hash of the directory at dir.
func (h *Hasher) Hash(dir string) (string, error) {
	return h.HashFS(os.DirFS(dir))
}

// HashFS computes the content hash of fsys. Every included file contributes its
// slash separated path, a NUL byte and its content, in lexical path order.
func (h *Hasher) HashFS(fsys fs.FS) (string, error) {
	files, err := h.FilesFS(fsys)
	if err != nil {
		return "", err
	}

	sum := sha256.New()
	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read %s", name)
		}

		sum.Write([]byte(name))
		sum.Write([]byte{0})
		sum.Write(content)
	}

	full := hex.EncodeToString(sum.Sum(nil))
	if h.length > 0 && len(full) > h.length {
		return full[:h.length], nil
	}
	return full, nil
}

// Files returns the sorted list of files that Hash includes for dir.
func (h *Hasher) Files(dir string) ([]string, error) {
	return h.FilesFS(os.DirFS(dir))
}

// FilesFS returns the sorted list of files that HashFS includes for fsys.
func (h *Hasher) FilesFS(fsys fs.FS) ([]string, error) {
	patterns, err := h.PatternsFS(fsys)
	if err != nil {
		return nil, err
	}

	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile patterns from %s", h.ignoreFile)
	}
	hasNegation := slices.ContainsFunc(patterns, func(p string) bool {
		return strings.HasPrefix(p, "!")
	})

	parents := map[string]patternmatcher.MatchInfo{}
	var files []string

	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}

		if h.alwaysInclude[name] {
			if !d.IsDir() {
				h.logs.Debug("include", zap.String("path", name), zap.String("reason", "always included"))
				files = append(files, name)
			}
			return nil
		}

		matched, info, err := pm.MatchesUsingParentResults(name, parents[path.Dir(name)])
		if err != nil {
			return errors.Wrapf(err, "pattern match failed for %s", name)
		}

		if d.IsDir() {
			parents[name] = info
			if matched && !hasNegation {
				h.logs.Debug("skip", zap.String("path", name+"/"))
				return fs.SkipDir
			}
			h.logs.Debug("dir", zap.String("path", name+"/"))
			return nil
		}

		if matched {
			h.logs.Debug("skip", zap.String("path", name))
			return nil
		}

		h.logs.Debug("include", zap.String("path", name))
		files = append(files, name)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk directory")
	}

	slices.Sort(files)
	return files, nil
}

// Patterns returns the ignore patterns of dir, nil if there is no ignore file.
func (h *Hasher) Patterns(dir string) ([]string, error) {
	return h.PatternsFS(os.DirFS(dir))
}

// PatternsFS returns the ignore patterns of fsys, nil if there is no ignore file.
func (h *Hasher) PatternsFS(fsys fs.FS) ([]string, error) {
	f, err := fsys.Open(h.ignoreFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to open %s", h.ignoreFile)
	}
	defer f.Close()

	patterns, err := ParseIgnore(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", h.ignoreFile)
	}
	return patterns, nil
}

// ParseIgnore reads dockerignore-style patterns, skipping blank lines and comments.
func ParseIgnore(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}
