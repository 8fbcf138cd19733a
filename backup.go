package reflser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andreyvit/reflser/fsutil"
)

// DocState is the backup state of a document path.
type DocState int

const (
	// Fresh: the document exists and is readable as is.
	Fresh DocState = iota
	// Committed: a new version was written and the backup rotated.
	Committed
	// RolledBack: the document was missing or unreadable and was restored
	// from its backup.
	RolledBack
)

func (st DocState) String() string {
	switch st {
	case Fresh:
		return "fresh"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("DocState(%d)", int(st))
	}
}

// BackupPath returns "<path><BackupExt>".
func (s *Serializer) BackupPath(path string) string {
	return path + s.opt.BackupExt
}

func (s *Serializer) checkPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	n, limit := len(abs), s.opt.MaxPathLen
	if n > limit {
		return objErrf(path, "", "", ErrPathTooLong, "%d characters, limit is %d", n, limit)
	}
	if n > limit-limit/8 {
		s.logger.Warn("reflser: path is close to the length limit", "path", path, "len", n, "limit", limit)
	}
	return nil
}

// commit writes data to path. With backup, an existing document is first
// renamed to the backup path; if there was none, the new document is copied
// there once written.
func (s *Serializer) commit(path string, data []byte, backup bool) (DocState, error) {
	bak := s.BackupPath(path)
	if err := s.checkPath(path); err != nil {
		return Fresh, err
	}
	if backup {
		if err := s.checkPath(bak); err != nil {
			return Fresh, err
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return Fresh, objErrf(path, "", "", err, "creating directory")
		}
	}

	if backup {
		exists, err := fsutil.Exists(path)
		if err != nil {
			return Fresh, objErrf(path, "", "", err, "")
		}
		if exists {
			if err := os.Rename(path, bak); err != nil {
				return Fresh, objErrf(path, "", "", err, "rotating backup")
			}
		}
	}

	if err := fsutil.WriteFile(path, data, 0o666); err != nil {
		return Fresh, objErrf(path, "", "", err, "writing")
	}

	if backup {
		exists, err := fsutil.Exists(bak)
		if err != nil {
			return Committed, objErrf(bak, "", "", err, "")
		}
		if !exists {
			if err := fsutil.CopyFile(path, bak); err != nil {
				return Committed, objErrf(bak, "", "", err, "creating backup")
			}
		}
	}
	s.logger.Debug("reflser: committed", "path", path, "size", len(data), "backup", backup)
	return Committed, nil
}

// prepareRead makes sure a document exists at path, restoring it from the
// backup if necessary.
func (s *Serializer) prepareRead(path string) (DocState, error) {
	if err := s.checkPath(path); err != nil {
		return Fresh, err
	}
	exists, err := fsutil.Exists(path)
	if err != nil {
		return Fresh, objErrf(path, "", "", err, "")
	}
	if exists {
		return Fresh, nil
	}
	if err := s.restore(path); err != nil {
		return Fresh, err
	}
	return RolledBack, nil
}

func (s *Serializer) restore(path string) error {
	bak := s.BackupPath(path)
	exists, err := fsutil.Exists(bak)
	if err != nil {
		return objErrf(bak, "", "", err, "")
	}
	if !exists {
		return objErrf(path, "", "", ErrNotFound, "no document and no backup")
	}
	if err := fsutil.CopyFile(bak, path); err != nil {
		return objErrf(path, "", "", err, "restoring from backup")
	}
	s.logger.Warn("reflser: restored document from backup", "path", path, "backup", bak)
	return nil
}

// Restore overwrites the document at path with its backup.
func (s *Serializer) Restore(path string) error {
	if err := s.checkPath(path); err != nil {
		return err
	}
	return s.restore(path)
}

// LoadDocument reads and parses the document at path. A missing document is
// restored from its backup; so is one that fails to parse, if a backup
// exists.
func (s *Serializer) LoadDocument(path string) (*Document, error) {
	doc, _, err := s.loadDocument(path)
	return doc, err
}

func (s *Serializer) loadDocument(path string) (*Document, DocState, error) {
	state, err := s.prepareRead(path)
	if err != nil {
		return nil, state, err
	}
	doc, err := s.parseDocumentFile(path)
	if err == nil || state == RolledBack {
		if doc != nil {
			doc.State = state
		}
		return doc, state, err
	}

	exists, bakErr := fsutil.Exists(s.BackupPath(path))
	if bakErr != nil || !exists {
		return nil, state, err
	}
	s.logger.Warn("reflser: document is unreadable, trying backup", "path", path, "err", err)
	if rerr := s.restore(path); rerr != nil {
		return nil, state, errors.Join(err, rerr)
	}
	doc, err = s.parseDocumentFile(path)
	if doc != nil {
		doc.State = RolledBack
	}
	return doc, RolledBack, err
}

func (s *Serializer) parseDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, objErrf(path, "", "", err, "")
	}
	sections, err := FormatOf(path, s.opt.Format).Decode(data)
	if err != nil {
		return nil, objErrf(path, "", "", err, "")
	}
	if sections.Len() == 0 {
		return nil, objErrf(path, "", "", ErrMalformed, "document has no sections")
	}
	return &Document{Path: path, Sections: sections}, nil
}

// SaveDocument encodes the document in the format matching its path and
// writes it, rotating the backup if requested. On success doc.State is
// Committed.
func (s *Serializer) SaveDocument(doc *Document, backup bool) error {
	if doc.Path == "" {
		return objErrf("", "", "", ErrMalformed, "document has no path")
	}
	data, err := FormatOf(doc.Path, s.opt.Format).Encode(doc.Sections)
	if err != nil {
		return objErrf(doc.Path, "", "", err, "")
	}
	state, err := s.commit(doc.Path, data, backup)
	if err != nil {
		return err
	}
	doc.State = state
	return nil
}
