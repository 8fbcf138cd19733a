package reflser

import (
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

const boltSidecarFile = "sidecars.db"

var boltSidecarBucket = []byte("geo")

// BoltSidecars keeps all payloads of a document in a single Bolt file,
// SidecarDir(doc)/sidecars.db, keyed by "<entityId>.<fieldName>.<ext>".
// The file is opened and closed on every call.
type BoltSidecars struct {
	Ext       string
	IsTesting bool
}

func (s BoltSidecars) ext() string {
	if s.Ext == "" {
		return defaultSidecarExt
	}
	return s.Ext
}

func (s BoltSidecars) open(docPath string, writable bool) (*bbolt.DB, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	bopt.ReadOnly = !writable
	if s.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}
	return bbolt.Open(filepath.Join(SidecarDir(docPath), boltSidecarFile), 0666, bopt)
}

func (s BoltSidecars) Get(docPath string, key SidecarKey) ([]byte, bool, error) {
	if _, err := os.Stat(filepath.Join(SidecarDir(docPath), boltSidecarFile)); os.IsNotExist(err) {
		return nil, false, nil
	}
	bdb, err := s.open(docPath, false)
	if err != nil {
		return nil, false, err
	}
	defer bdb.Close()

	var data []byte
	err = bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltSidecarBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(unsafeBytesFromString(key.FileName(s.ext()))); v != nil {
			// v is only valid inside the transaction
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

func (s BoltSidecars) Put(docPath string, key SidecarKey, data []byte) error {
	if err := os.MkdirAll(SidecarDir(docPath), 0o777); err != nil {
		return err
	}
	bdb, err := s.open(docPath, true)
	if err != nil {
		return err
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists(boltSidecarBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key.FileName(s.ext())), data)
	})
	if cerr := bdb.Close(); err == nil {
		err = cerr
	}
	return err
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
