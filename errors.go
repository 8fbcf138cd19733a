package reflser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed    = errors.New("malformed input")
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous section")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrUnknownType  = errors.New("unknown type")
	ErrPathTooLong  = errors.New("path too long")
)

// DataError reports a binary payload (a sidecar or a msgpack document) that
// could not be decoded. Off is the position where decoding stopped.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// Error includes the bytes around Off, enough to tell a truncated payload
// from a foreign file.
func (e *DataError) Error() string {
	const window = 16
	n := len(e.Data)
	off := min(max(e.Off, 0), n)
	lo, hi := max(off-window, 0), min(off+window, n)

	var buf strings.Builder
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	fmt.Fprintf(&buf, " (at %d of %d bytes", e.Off, n)
	if n > 0 {
		buf.WriteString(": ")
		if lo > 0 {
			buf.WriteString("...")
		}
		fmt.Fprintf(&buf, "%x", e.Data[lo:hi])
		if hi < n {
			buf.WriteString("...")
		}
	}
	buf.WriteByte(')')
	return buf.String()
}

// ObjectError carries the document path, entity id and field name involved
// in a failed read or write. Any of them can be empty.
type ObjectError struct {
	Path     string
	EntityID EntityID
	Field    string
	Msg      string
	Err      error
}

func objErrf(path string, id EntityID, field string, err error, format string, args ...any) error {
	return &ObjectError{path, id, field, fmt.Sprintf(format, args...), err}
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

func (e *ObjectError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Path)
	if e.EntityID != "" {
		buf.WriteByte('#')
		buf.WriteString(string(e.EntityID))
	}
	if e.Field != "" {
		if buf.Len() > 0 {
			buf.WriteByte('/')
		}
		buf.WriteString(e.Field)
	}
	if buf.Len() == 0 {
		buf.WriteString("<memory>")
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// withContext fills in location details missing from an *ObjectError,
// or wraps a foreign error into one.
func withContext(err error, path string, id EntityID) error {
	if err == nil {
		return nil
	}
	var oe *ObjectError
	if errors.As(err, &oe) {
		if oe.Path == "" {
			oe.Path = path
		}
		if oe.EntityID == "" {
			oe.EntityID = id
		}
		return err
	}
	return &ObjectError{Path: path, EntityID: id, Err: err}
}
