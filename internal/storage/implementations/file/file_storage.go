package file

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// FileStorageConfig contains configuration for file-based storage
type FileStorageConfig struct {
	BasePath    string `json:"base_path" mapstructure:"base_path"`
	Compression bool   `json:"compression" mapstructure:"compression"`
	CreateDirs  bool   `json:"create_dirs" mapstructure:"create_dirs"`
}

// FileStorage keeps one JSON document per run report under BasePath
type FileStorage struct {
	config    *FileStorageConfig
	logger    *logrus.Logger
	mu        sync.RWMutex
	connected bool
}

// NewFileStorage creates a new file storage instance
func NewFileStorage(config *FileStorageConfig, logger *logrus.Logger) (*FileStorage, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "FileStorageConfig cannot be nil")
	}

	if config.BasePath == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "BasePath is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &FileStorage{
		config: config,
		logger: logger,
	}, nil
}

// Name returns the backend name
func (fs *FileStorage) Name() string {
	return "file"
}

// Connect prepares the base directory and checks it is writable
func (fs *FileStorage) Connect(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.connected {
		return nil
	}

	if fs.config.CreateDirs {
		if err := os.MkdirAll(fs.config.BasePath, 0o755); err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
				fmt.Sprintf("Failed to create directory: %s", fs.config.BasePath))
		}
	}

	if err := fs.checkWritable(); err != nil {
		return err
	}

	fs.connected = true
	fs.logger.WithField("base_path", fs.config.BasePath).Info("File storage ready")
	return nil
}

// Close marks the storage as closed
func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.connected = false
	return nil
}

// Ping verifies that the base directory is still writable
func (fs *FileStorage) Ping(ctx context.Context) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return errors.NewStorageError(errors.CodeConnectionFailed, "file storage not connected")
	}
	return fs.checkWritable()
}

// Save writes the report atomically, replacing an existing one
func (fs *FileStorage) Save(ctx context.Context, report *models.RunReport) error {
	if report == nil || report.ID == "" {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "report with an id is required")
	}
	if err := validID(report.ID); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.connected {
		return errors.NewStorageError(errors.CodeConnectionFailed, "file storage not connected")
	}

	tmp, err := os.CreateTemp(fs.config.BasePath, ".report-*")
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to create report file")
	}
	defer os.Remove(tmp.Name())

	if err := fs.encode(tmp, report); err != nil {
		tmp.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to write report")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to write report")
	}

	if err := os.Rename(tmp.Name(), fs.reportPath(report.ID)); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to store report")
	}

	fs.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"path":      fs.reportPath(report.ID),
	}).Debug("Saved report")

	return nil
}

// Load reads the report stored under id
func (fs *FileStorage) Load(ctx context.Context, id string) (*models.RunReport, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return nil, errors.NewStorageError(errors.CodeConnectionFailed, "file storage not connected")
	}

	file, err := os.Open(fs.reportPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("run", id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to open report")
	}
	defer file.Close()

	var reader io.Reader = file
	if fs.config.Compression {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to open compressed report")
		}
		defer gz.Close()
		reader = gz
	}

	var report models.RunReport
	if err := json.NewDecoder(reader).Decode(&report); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to decode report")
	}
	return &report, nil
}

// Delete removes the report stored under id
func (fs *FileStorage) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.connected {
		return errors.NewStorageError(errors.CodeConnectionFailed, "file storage not connected")
	}

	if err := os.Remove(fs.reportPath(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("run", id)
		}
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to delete report")
	}
	return nil
}

// List returns the ids of all stored reports, sorted
func (fs *FileStorage) List(ctx context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return nil, errors.NewStorageError(errors.CodeConnectionFailed, "file storage not connected")
	}

	entries, err := os.ReadDir(fs.config.BasePath)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to list reports")
	}

	ext := fs.extension()
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (fs *FileStorage) encode(w io.Writer, report *models.RunReport) error {
	if !fs.config.Compression {
		return json.NewEncoder(w).Encode(report)
	}

	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(report); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func (fs *FileStorage) checkWritable() error {
	info, err := os.Stat(fs.config.BasePath)
	if err != nil || !info.IsDir() {
		return errors.NewStorageError(errors.CodeConnectionFailed,
			fmt.Sprintf("Base path does not exist: %s", fs.config.BasePath))
	}

	probe, err := os.CreateTemp(fs.config.BasePath, ".write_test-*")
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			fmt.Sprintf("Cannot write to directory: %s", fs.config.BasePath))
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

func (fs *FileStorage) reportPath(id string) string {
	return filepath.Join(fs.config.BasePath, id+fs.extension())
}

func (fs *FileStorage) extension() string {
	if fs.config.Compression {
		return ".json.gz"
	}
	return ".json"
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return errors.NewConfigurationError(errors.CodeInvalidInput, fmt.Sprintf("invalid report id '%s'", id))
	}
	return nil
}
