package quotelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

var archiveNameSanitizer = strings.NewReplacer(":", "-", ".", "-")

// rotateIfNeeded archives the active file once it reaches the size
// threshold. Rotation is synchronous with the append that discovered the
// breach; on failure the error is logged and the append proceeds against the
// oversized file so writes are never blocked indefinitely. Caller holds s.mu.
func (s *Store) rotateIfNeeded() {
	if s.maxSize <= 0 {
		return
	}
	info, err := os.Stat(s.path)
	if err != nil || info.Size() < s.maxSize {
		return
	}
	if err := s.rotate(); err != nil {
		s.logger.Error("log rotation failed", "error", err)
		return
	}
	s.logger.Info("rotated quote log", "size", info.Size(), "dir", s.backupDir)
}

func (s *Store) rotate() error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	stamp := archiveNameSanitizer.Replace(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	archivePath := filepath.Join(s.backupDir, fmt.Sprintf("quote-logs-%s.log.gz", stamp))

	if err := compressFile(s.path, archivePath); err != nil {
		return err
	}
	if err := os.Truncate(s.path, 0); err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return fmt.Errorf("compress log file: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return out.Close()
}
