package reflser

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/andreyvit/reflser/fsutil"
)

const (
	sidecarDirSuffix  = "_geo"
	defaultSidecarExt = "bin"
)

// SidecarKey identifies a sidecar payload within a document.
type SidecarKey struct {
	EntityID EntityID
	Field    string
}

// FileName returns "<entityId>.<fieldName>.<ext>".
func (k SidecarKey) FileName(ext string) string {
	return string(k.EntityID) + "." + k.Field + "." + ext
}

// SidecarDir returns the directory holding a document's sidecars:
// "<documentDir>/<documentStem>_geo".
func SidecarDir(docPath string) string {
	dir, base := filepath.Split(docPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+sidecarDirSuffix)
}

// SidecarPath returns "<documentDir>/<documentStem>_geo/<entityId>.<fieldName>.<ext>".
func SidecarPath(docPath string, key SidecarKey, ext string) string {
	return filepath.Join(SidecarDir(docPath), key.FileName(ext))
}

// SidecarStore holds binary payloads that are too large for documents.
// Stale payloads are never deleted by the serializer; whoever owns the
// document tree is responsible for cleaning them up.
type SidecarStore interface {
	// Get returns ok == false if there is no payload for the key.
	Get(docPath string, key SidecarKey) (data []byte, ok bool, err error)

	// Put stores the payload, creating containers as needed.
	Put(docPath string, key SidecarKey, data []byte) error
}

// FileSidecars stores each payload in its own file under SidecarDir.
type FileSidecars struct {
	Ext string
}

func (s FileSidecars) ext() string {
	if s.Ext == "" {
		return defaultSidecarExt
	}
	return s.Ext
}

func (s FileSidecars) Get(docPath string, key SidecarKey) ([]byte, bool, error) {
	data, err := os.ReadFile(SidecarPath(docPath, key, s.ext()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s FileSidecars) Put(docPath string, key SidecarKey, data []byte) error {
	if err := os.MkdirAll(SidecarDir(docPath), 0o777); err != nil {
		return err
	}
	return fsutil.WriteFile(SidecarPath(docPath, key, s.ext()), data, 0o666)
}

func (ws *writeState) writeSidecarIfChanged(f *Field, data []byte, empty bool, origData []byte, hasOrig bool) error {
	key := SidecarKey{ws.entity, f.name}
	if hasOrig {
		if bytes.Equal(data, origData) {
			ws.s.logger.Debug("reflser: sidecar unchanged", "doc", ws.doc.Path, "entity", key.EntityID, "field", key.Field)
			return nil
		}
	} else if empty {
		// Only overwrite an existing payload, so that a cleared field does
		// not come back from a stale sidecar.
		if ws.doc.Path == "" {
			return nil
		}
		_, exists, err := ws.s.sidecars.Get(ws.doc.Path, key)
		if err != nil {
			return objErrf(ws.doc.Path, ws.entity, f.name, err, "reading sidecar")
		}
		if !exists {
			return nil
		}
	}
	if ws.doc.Path == "" {
		return objErrf("", ws.entity, f.name, ErrMalformed, "%s payload needs a document path", f.kind)
	}
	if err := ws.s.sidecars.Put(ws.doc.Path, key, data); err != nil {
		return objErrf(ws.doc.Path, ws.entity, f.name, err, "writing sidecar")
	}
	ws.s.logger.Debug("reflser: sidecar written", "doc", ws.doc.Path, "entity", key.EntityID, "field", key.Field, "size", len(data))
	return nil
}

// readSidecars loads every geometry field of obj. Missing payloads are fine
// when the object has an original to inherit them from; otherwise they are
// reported, unless a sibling geometry field has data (e.g. a skeletal node
// keeps its geometry in the skeletal mesh and leaves the plain mesh empty).
func (rs *readState) readSidecars(ti *TypeInfo, obj Object, hasOrig bool) error {
	var missing []*Field
	var anyLoaded bool
	for _, f := range ti.fields {
		sa, ok := f.acc.(sidecarAccessor)
		if !ok {
			continue
		}
		if rs.doc.Path == "" {
			if !hasOrig {
				missing = append(missing, f)
			}
			continue
		}
		key := SidecarKey{rs.entity, f.name}
		data, ok, err := rs.s.sidecars.Get(rs.doc.Path, key)
		if err != nil {
			return objErrf(rs.doc.Path, rs.entity, f.name, err, "reading sidecar")
		}
		if !ok {
			if !hasOrig {
				missing = append(missing, f)
			}
			continue
		}
		if err := sa.load(obj, data); err != nil {
			return objErrf(rs.doc.Path, rs.entity, f.name, err, "decoding sidecar")
		}
		if !sa.isEmpty(obj) {
			anyLoaded = true
		}
	}
	if len(missing) == 0 || anyLoaded {
		return nil
	}
	for _, f := range missing {
		rs.s.logger.Warn("reflser: missing sidecar", "doc", rs.doc.Path, "entity", rs.entity, "field", f.name, slog.String("kind", f.kind.String()))
	}
	return nil
}
