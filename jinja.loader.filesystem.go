package jinja

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSystemLoader reads templates from files below a root directory.
// Template names are slash separated paths relative to the root without the
// extension:
//
//	<root>/
//	  invoice.j2          -> "invoice"
//	  mail/welcome.j2     -> "mail/welcome"
type FileSystemLoader struct {
	mu        sync.RWMutex
	root      string
	extension string
	watcher   *fsnotify.Watcher
	closed    bool
	logger    *zap.Logger
}

// NewFileSystemLoader creates a loader for root. An empty extension uses
// DefaultTemplateExtension. The root directory must exist.
func NewFileSystemLoader(root, extension string, logger *zap.Logger) (*FileSystemLoader, error) {
	if root == "" {
		return nil, NewLoaderError(ErrMsgInvalidLoaderRoot, LoaderKindFilesystem, nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, NewLoaderError(ErrMsgInvalidLoaderRoot, LoaderKindFilesystem, err)
	}
	if !info.IsDir() {
		return nil, NewLoaderError(ErrMsgInvalidLoaderRoot, LoaderKindFilesystem, nil)
	}
	if extension == "" {
		extension = DefaultTemplateExtension
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug(LogMsgLoaderOpened,
		zap.String(LogFieldLoader, LoaderKindFilesystem),
		zap.String(LogFieldPath, root))
	return &FileSystemLoader{
		root:      filepath.Clean(root),
		extension: extension,
		logger:    logger,
	}, nil
}

// Root returns the template root directory.
func (l *FileSystemLoader) Root() string {
	return l.root
}

// Load reads the named template.
func (l *FileSystemLoader) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Validate template name for security
	if err := validateTemplateName(name); err != nil {
		return "", err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return "", NewLoaderClosedError(LoaderKindFilesystem)
	}

	data, err := os.ReadFile(l.pathFor(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewTemplateNotFoundError(name)
		}
		return "", NewLoaderError(ErrMsgReadTemplateFailed, LoaderKindFilesystem, err)
	}
	return string(data), nil
}

// List returns the names of all templates below the root, sorted.
func (l *FileSystemLoader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, NewLoaderClosedError(LoaderKindFilesystem)
	}

	var names []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if name, ok := l.nameFor(p); ok {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, NewLoaderError(ErrMsgReadTemplateFailed, LoaderKindFilesystem, err)
	}
	return names, nil
}

// Watch reports changes to template files through onChange. Directories
// created after Watch starts are watched as well.
func (l *FileSystemLoader) Watch(ctx context.Context, onChange func(name string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return NewLoaderClosedError(LoaderKindFilesystem)
	}
	if l.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return NewLoaderError(ErrMsgWatchFailed, LoaderKindFilesystem, err)
	}
	err = filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return NewLoaderError(ErrMsgWatchFailed, LoaderKindFilesystem, err)
	}

	l.watcher = watcher
	go l.watchLoop(ctx, watcher, onChange)
	l.logger.Debug(LogMsgWatchStarted, zap.String(LogFieldPath, l.root))
	return nil
}

func (l *FileSystemLoader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(name string)) {
	defer l.stopWatch(watcher)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			l.logger.Debug(LogMsgWatchEvent,
				zap.String(LogFieldPath, ev.Name),
				zap.String(LogFieldOp, ev.Op.String()))

			if ev.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						l.logger.Warn(LogMsgWatchError, zap.Error(err))
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if name, ok := l.nameFor(ev.Name); ok && onChange != nil {
				onChange(name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn(LogMsgWatchError, zap.Error(err))
		}
	}
}

// stopWatch closes watcher unless Close already did
func (l *FileSystemLoader) stopWatch(watcher *fsnotify.Watcher) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher == watcher {
		l.watcher = nil
		watcher.Close()
		l.logger.Debug(LogMsgWatchStopped, zap.String(LogFieldPath, l.root))
	}
}

// Close stops watching and rejects further loads.
func (l *FileSystemLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	var err error
	if l.watcher != nil {
		err = l.watcher.Close()
		l.watcher = nil
	}
	l.logger.Debug(LogMsgLoaderClosed, zap.String(LogFieldLoader, LoaderKindFilesystem))
	return err
}

// pathFor maps a validated template name to its file
func (l *FileSystemLoader) pathFor(name string) string {
	if !strings.HasSuffix(name, l.extension) {
		name += l.extension
	}
	return filepath.Join(l.root, filepath.FromSlash(name))
}

// normalizeName maps "page.j2" and "page" to the name the watcher reports
func (l *FileSystemLoader) normalizeName(name string) string {
	return strings.TrimSuffix(filepath.ToSlash(name), l.extension)
}

// nameFor maps a file below the root back to its template name
func (l *FileSystemLoader) nameFor(file string) (string, bool) {
	if !strings.HasSuffix(file, l.extension) {
		return "", false
	}
	rel, err := filepath.Rel(l.root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), l.extension), true
}

// validateTemplateName rejects names that could escape the loader root
func validateTemplateName(name string) error {
	if name == "" {
		return NewInvalidTemplateNameError(ErrMsgInvalidTemplateName, name)
	}
	// Check for path traversal attempts
	if strings.Contains(name, "..") || path.IsAbs(name) || filepath.IsAbs(name) {
		return NewInvalidTemplateNameError(ErrMsgPathTraversalDetected, name)
	}
	// Check for invalid filesystem characters
	if strings.ContainsAny(name, templateNameForbiddenChars) {
		return NewInvalidTemplateNameError(ErrMsgInvalidTemplateName, name)
	}
	return nil
}
