package reflser

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

const (
	DefaultBackupExt  = ".bak"
	DefaultMaxPathLen = 1024
	DefaultEpsilon    = 1e-6

	originalKey = "$original"
	attrPrefix  = "$attr:"
)

// isReservedKey reports whether a section key belongs to the serializer
// rather than to a reflected field.
func isReservedKey(k string) bool {
	return strings.HasPrefix(k, "$")
}

type Options struct {
	// Format is used for documents whose extension does not name one.
	Format Format

	// RepositoryRoot is the directory of canonical documents. Objects read
	// from documents under it remember their origin, and original
	// references are resolved relative to it.
	RepositoryRoot string

	BackupExt  string
	SidecarExt string

	// Sidecars defaults to FileSidecars.
	Sidecars SidecarStore

	// MaxPathLen is the longest accepted file path; paths longer than 7/8
	// of it produce a warning.
	MaxPathLen int

	// Epsilon is the tolerance below which float and vector fields are
	// considered unchanged.
	Epsilon float64

	Logger *slog.Logger
}

// Serializer reads and writes objects of the types in its Registry.
//
// A Serializer holds no per-document state. Calls are synchronous, and
// callers must not access the same document path concurrently.
type Serializer struct {
	reg      *Registry
	opt      Options
	root     string
	logger   *slog.Logger
	sidecars SidecarStore
}

func New(reg *Registry, opt Options) *Serializer {
	if reg == nil {
		panic("reflser: nil registry")
	}
	if opt.BackupExt == "" {
		opt.BackupExt = DefaultBackupExt
	}
	if opt.SidecarExt == "" {
		opt.SidecarExt = defaultSidecarExt
	}
	if opt.MaxPathLen == 0 {
		opt.MaxPathLen = DefaultMaxPathLen
	}
	if opt.Epsilon == 0 {
		opt.Epsilon = DefaultEpsilon
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Sidecars == nil {
		opt.Sidecars = FileSidecars{Ext: opt.SidecarExt}
	}
	s := &Serializer{
		reg:      reg,
		opt:      opt,
		logger:   opt.Logger,
		sidecars: opt.Sidecars,
	}
	if opt.RepositoryRoot != "" {
		root, err := filepath.Abs(opt.RepositoryRoot)
		if err != nil {
			panic(fmt.Errorf("reflser: repository root %q: %w", opt.RepositoryRoot, err))
		}
		s.root = root
	}
	return s
}

func (s *Serializer) Registry() *Registry { return s.reg }
func (s *Serializer) Options() Options    { return s.opt }

// repoRelative returns the slash-separated path of a file relative to the
// repository root, if the file lies inside of it.
func (s *Serializer) repoRelative(path string) (string, bool) {
	if s.root == "" || path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// repoPath resolves a repository-relative path.
func (s *Serializer) repoPath(rel string) (string, error) {
	if s.root == "" {
		return "", fmt.Errorf("%w: original reference %q needs a repository root", ErrNotFound, rel)
	}
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	if _, ok := s.repoRelative(p); !ok {
		return "", fmt.Errorf("%w: original reference %q points outside of the repository", ErrMalformed, rel)
	}
	return p, nil
}
