// Package writer implements SafeFileWriter: scoped staging and commit
// of file contents under a fixed output root, with path-traversal
// defenses, optional external-modification detection, and backup
// retention.
package writer

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/azadi-go/azadi/internal/chunkerr"
	"github.com/azadi-go/azadi/internal/pathguard"
)

// Config controls SafeFileWriter's commit behavior.
type Config struct {
	// BackupEnabled, when true, copies the previously committed version
	// of a file into OldDir before it is overwritten. Default true.
	BackupEnabled bool
	// ModificationCheck, when true, refuses to commit over a
	// destination whose mtime no longer matches the mtime recorded at
	// its last successful commit. Default true.
	ModificationCheck bool
}

// DefaultConfig enables both the modification check and backups.
func DefaultConfig() Config {
	return Config{BackupEnabled: true, ModificationCheck: true}
}

// SafeFileWriter commits file contents to genBase, staging through
// privateDir and backing up superseded versions into oldDir.
type SafeFileWriter struct {
	genBase    string
	privateDir string
	oldDir     string

	mu     sync.Mutex
	config Config
	log    logrus.FieldLogger

	// lastCommitMtime records, per relative path, the mtime observed on
	// the destination immediately after its last successful commit.
	lastCommitMtime map[string]time.Time
}

// New builds a SafeFileWriter rooted at genBase, staging through
// privateDir and backing up into oldDir. log may be nil.
func New(genBase, privateDir, oldDir string, cfg Config, log logrus.FieldLogger) *SafeFileWriter {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &SafeFileWriter{
		genBase:         genBase,
		privateDir:      privateDir,
		oldDir:          oldDir,
		config:          cfg,
		log:             log,
		lastCommitMtime: make(map[string]time.Time),
	}
}

// GetGenBase returns the output root.
func (w *SafeFileWriter) GetGenBase() string { return w.genBase }

// GetOldDir returns the backup root.
func (w *SafeFileWriter) GetOldDir() string { return w.oldDir }

// GetPrivateDir returns the staging root.
func (w *SafeFileWriter) GetPrivateDir() string { return w.privateDir }

// GetConfig returns the current configuration.
func (w *SafeFileWriter) GetConfig() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// SetConfig replaces the current configuration.
func (w *SafeFileWriter) SetConfig(cfg Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.config = cfg
}

// BeforeWrite validates relativePath, creates any missing ancestor
// directories under privateDir/genBase/oldDir, and returns a path
// inside privateDir the caller should write content to verbatim.
func (w *SafeFileWriter) BeforeWrite(relativePath string) (string, error) {
	if err := pathguard.Check(relativePath); err != nil {
		reason := err.Error()
		if v, ok := err.(*pathguard.Violation); ok {
			reason = v.Reason
		}
		return "", &chunkerr.SecurityViolation{Reason: reason}
	}

	for _, root := range []string{w.privateDir, w.genBase, w.oldDir} {
		dir := filepath.Dir(filepath.Join(root, relativePath))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", chunkerr.WrapIO(err, "creating directory "+dir)
		}
	}

	stagedName := relativePath + "." + uuid.NewString() + ".tmp"
	staged := filepath.Join(w.privateDir, stagedName)
	w.log.WithField("staged", staged).Debug("staged path allocated")
	return staged, nil
}

// AfterWrite performs the mtime check, the backup copy, and the
// atomic replace into genBase, given the staged path BeforeWrite
// returned for the same relativePath.
func (w *SafeFileWriter) AfterWrite(relativePath, stagedPath string) error {
	w.mu.Lock()
	cfg := w.config
	last, haveLast := w.lastCommitMtime[relativePath]
	w.mu.Unlock()

	dest := filepath.Join(w.genBase, relativePath)

	destInfo, destErr := os.Stat(dest)
	destExists := destErr == nil

	if cfg.ModificationCheck && destExists {
		if haveLast {
			if !destInfo.ModTime().Equal(last) {
				return &chunkerr.ModifiedExternally{Path: relativePath}
			}
		}
	}

	if cfg.BackupEnabled && destExists {
		backupPath := filepath.Join(w.oldDir, relativePath)
		if err := copyFile(dest, backupPath); err != nil {
			return chunkerr.WrapIO(err, "backing up "+dest)
		}
	}

	if err := replaceFile(stagedPath, dest); err != nil {
		return chunkerr.WrapIO(err, "committing "+dest)
	}

	newInfo, err := os.Stat(dest)
	if err != nil {
		return chunkerr.WrapIO(err, "stat-ing committed file "+dest)
	}
	w.mu.Lock()
	w.lastCommitMtime[relativePath] = newInfo.ModTime()
	w.mu.Unlock()

	w.log.WithField("path", dest).Debug("committed")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// replaceFile atomically moves staged into place at dest. os.Rename is
// atomic within the same filesystem, which privateDir and genBase are
// expected to share; if they don't (e.g. a bind mount straddling
// devices), the copy-then-remove fallback keeps the operation
// correct, trading atomicity for portability.
func replaceFile(staged, dest string) error {
	if err := os.Rename(staged, dest); err == nil {
		return nil
	}
	if err := copyFile(staged, dest); err != nil {
		return err
	}
	return os.Remove(staged)
}
