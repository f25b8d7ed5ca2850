// Package store keeps saved cameras. Stream URIs never carry credentials
// and passwords are never stored.
package store

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	onvif "github.com/SridarDhandapani/onvif-media"
)

var (
	_ onvif.Store = (*MemoryStore)(nil)
	_ onvif.Store = (*FileStore)(nil)
)

// sanitize drops credentials from the stream URIs of rec
func sanitize(rec onvif.CameraRecord) (onvif.CameraRecord, error) {
	if rec.ID == "" {
		return rec, errors.NotValidf("camera record without id")
	}
	rec.MainStream = onvif.StripCredentials(rec.MainStream)
	rec.SubStream = onvif.StripCredentials(rec.SubStream)
	return rec, nil
}

func sortRecords(records []onvif.CameraRecord) {
	slices.SortFunc(records, func(a, b onvif.CameraRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// MemoryStore keeps records in memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]onvif.CameraRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]onvif.CameraRecord{}}
}

func (s *MemoryStore) Save(_ context.Context, rec onvif.CameraRecord) error {
	rec, err := sanitize(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]onvif.CameraRecord, error) {
	s.mu.RLock()
	records := make([]onvif.CameraRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sortRecords(records)
	return records, nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return errors.NotFoundf("camera %q", id)
	}
	delete(s.records, id)
	return nil
}

// FileStore keeps records in a YAML file. Every change rewrites the whole
// file through a temporary file in the same directory.
type FileStore struct {
	path string

	mu sync.Mutex
}

type fileContent struct {
	Cameras []onvif.CameraRecord `yaml:"cameras"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, rec onvif.CameraRecord) error {
	rec, err := sanitize(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	i := slices.IndexFunc(records, func(r onvif.CameraRecord) bool { return r.ID == rec.ID })
	if i >= 0 {
		records[i] = rec
	} else {
		records = append(records, rec)
	}

	return s.write(records)
}

func (s *FileStore) LoadAll(_ context.Context) ([]onvif.CameraRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	n := len(records)
	records = slices.DeleteFunc(records, func(r onvif.CameraRecord) bool { return r.ID == id })
	if len(records) == n {
		return errors.NotFoundf("camera %q", id)
	}

	return s.write(records)
}

func (s *FileStore) read() ([]onvif.CameraRecord, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "store: read %s", s.path)
	}

	var content fileContent
	if err = yaml.Unmarshal(b, &content); err != nil {
		return nil, errors.Annotatef(err, "store: decode %s", s.path)
	}

	sortRecords(content.Cameras)
	return content.Cameras, nil
}

func (s *FileStore) write(records []onvif.CameraRecord) error {
	sortRecords(records)

	b, err := yaml.Marshal(fileContent{Cameras: records})
	if err != nil {
		return errors.Annotate(err, "store: encode")
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Annotatef(err, "store: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Annotate(err, "store: temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Annotatef(err, "store: write %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Trace(err)
	}

	return errors.Annotatef(os.Rename(tmp.Name(), s.path), "store: replace %s", s.path)
}
