package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

const (
	// LogFilePrefix and LogFileSuffix frame the bucket key in log file names:
	// serial_log_2006-01-02_15.txt
	LogFilePrefix = "serial_log_"
	LogFileSuffix = ".txt"

	// BucketLayout is the time layout of a log bucket key (hour granularity).
	BucketLayout = "2006-01-02_15"

	// DefaultExportFileName is the export file created in the log directory
	// when no explicit path is configured.
	DefaultExportFileName = "export_data.txt"

	filePerm = 0o644
	dirPerm  = 0o755
)

// BucketKey returns the hour bucket key of t in t's location.
func BucketKey(t time.Time) string {
	return t.Format(BucketLayout)
}

// LogFileName returns the file name for a bucket key.
func LogFileName(bucket string) string {
	return LogFilePrefix + bucket + LogFileSuffix
}

// ParseLogFileName extracts the bucket key from a log file name.
func ParseLogFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, LogFilePrefix) || !strings.HasSuffix(name, LogFileSuffix) {
		return "", false
	}
	bucket := strings.TrimSuffix(strings.TrimPrefix(name, LogFilePrefix), LogFileSuffix)
	if _, err := time.Parse(BucketLayout, bucket); err != nil {
		return "", false
	}
	return bucket, true
}

// RotatingLog implements ports.LogStore. It keeps one file open per hour
// bucket and reopens in append mode, so a restart within the same hour
// continues the existing file.
type RotatingLog struct {
	dir    string
	file   *os.File
	bucket string
	path   string
	buf    []byte
}

// NewRotatingLog creates a RotatingLog writing into dir. No file is opened
// until the first Append.
func NewRotatingLog(dir string) *RotatingLog {
	return &RotatingLog{dir: dir}
}

// Append writes batch to the bucket file for now and fsyncs it.
func (l *RotatingLog) Append(batch domain.Batch, now time.Time) error {
	var closeErr error
	key := BucketKey(now)
	if l.file == nil || key != l.bucket {
		if err := l.rotate(key); err != nil {
			if l.file == nil {
				return err
			}
			// new file is open; still report the failed close
			closeErr = err
		}
	}

	l.buf = batch.AppendLines(l.buf[:0])
	if _, err := l.file.Write(l.buf); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}
	return closeErr
}

// Rotated reports whether an Append at now would switch files.
func (l *RotatingLog) Rotated(now time.Time) bool {
	return l.file == nil || BucketKey(now) != l.bucket
}

func (l *RotatingLog) rotate(key string) error {
	closeErr := l.Close()

	if err := os.MkdirAll(l.dir, dirPerm); err != nil {
		return errors.Join(closeErr, fmt.Errorf("log dir: %w", err))
	}
	path := filepath.Join(l.dir, LogFileName(key))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return errors.Join(closeErr, fmt.Errorf("open log: %w", err))
	}
	l.file, l.bucket, l.path = f, key, path
	return closeErr
}

// Current returns the path of the open log file.
func (l *RotatingLog) Current() string {
	if l.file == nil {
		return ""
	}
	return l.path
}

// Bucket returns the bucket key of the open file.
func (l *RotatingLog) Bucket() string {
	return l.bucket
}

// Close closes the open file. Calling Close with no file open is a no-op.
func (l *RotatingLog) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file, l.bucket, l.path = nil, "", ""
	if err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	return nil
}

// ExportFile implements ports.ExportStore for a single append-only file.
type ExportFile struct {
	path string
	file *os.File
	buf  []byte
}

// NewExportFile creates an ExportFile for path. The file is opened lazily.
func NewExportFile(path string) *ExportFile {
	return &ExportFile{path: path}
}

// Append writes batch to the export file, opening it if needed.
func (e *ExportFile) Append(batch domain.Batch) error {
	if e.file == nil {
		if err := os.MkdirAll(filepath.Dir(e.path), dirPerm); err != nil {
			return fmt.Errorf("export dir: %w", err)
		}
		f, err := os.OpenFile(e.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		e.file = f
	}

	e.buf = batch.AppendLines(e.buf[:0])
	if _, err := e.file.Write(e.buf); err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	if err := e.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", e.path, err)
	}
	return nil
}

// IsOpen reports whether the export file handle is open.
func (e *ExportFile) IsOpen() bool {
	return e.file != nil
}

// Path returns the export file path.
func (e *ExportFile) Path() string {
	return e.path
}

// Close closes the export file if it is open.
func (e *ExportFile) Close() error {
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	if err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return nil
}

// LogFileInfo describes one hour bucket file on disk.
type LogFileInfo struct {
	Path   string
	Bucket string
	Size   int64
}

// ListLogFiles returns the log files in dir, oldest bucket first.
// Files that do not follow the log naming scheme are ignored.
func ListLogFiles(dir string) ([]LogFileInfo, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []LogFileInfo
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		bucket, ok := ParseLogFileName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, LogFileInfo{
			Path:   filepath.Join(dir, e.Name()),
			Bucket: bucket,
			Size:   info.Size(),
		})
	}
	// the layout sorts lexicographically in time order
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out, nil
}
