// Package photostore contains the photo library finished pictures are saved to.
package photostore

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrAccessDenied is generated when the library root cannot be written to
	ErrAccessDenied = errors.New("photostore: access to library denied")

	// ErrDisabled is generated by Save when the library is not Enabled
	ErrDisabled = errors.New("photostore: library disabled")

	// ErrFormat is generated for an output format the library cannot write
	ErrFormat = errors.New("photostore: unsupported format")

	// ErrNothingSaved is generated by Latest before the first save
	ErrNothingSaved = errors.New("photostore: nothing saved yet")
)

// Formats lists the accepted values of Library.Format
var Formats = []string{"png", "jpg", "gif", "tif", "bmp", "fits"}

// Meta describes the photo being saved.  It ends up in FITS headers and logs.
type Meta struct {
	ID          uuid.UUID
	Taken       time.Time
	Camera      string
	Orientation string
	Degraded    bool
}

// Library saves images with incrementing filenames in yyyy-mm-dd subfolders of Root.
// It is safe for concurrent use.
type Library struct {
	mu sync.Mutex

	// root is the root path
	root string

	// prefix is the prefix for the filenames
	prefix string

	// format is the file extension and encoder, one of Formats
	format string

	// enabled allows saving to be switched off without reconfiguring the booth
	enabled bool

	// denied is set when Authorize failed
	denied bool

	// last is the path of the most recent save
	last string
}

// New returns an enabled library.  format must be one of Formats.
func New(root, prefix, format string) (*Library, error) {
	l := &Library{root: root, prefix: prefix, enabled: true}
	if err := l.SetFormat(format); err != nil {
		return nil, err
	}
	return l, nil
}

// Authorize checks once that files can be added under Root.  The library
// remembers a refusal and rejects every Save until Authorize succeeds.
func (l *Library) Authorize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := tryWrite(l.root)
	l.denied = err != nil
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return nil
}

// tryWrite creates then removes a file in root
func tryWrite(root string) error {
	if root == "" {
		return errors.New("no root folder configured")
	}
	if err := os.MkdirAll(root, 0o777); err != nil {
		return err
	}
	f, err := os.CreateTemp(root, ".graybooth-write-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Root returns the root folder
func (l *Library) Root() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root
}

// SetRoot changes the root folder, creating it.  Access must be granted again
// through Authorize if it was denied.
func (l *Library) SetRoot(root string) error {
	if err := os.MkdirAll(root, 0o777); err != nil {
		return err
	}
	l.mu.Lock()
	l.root = root
	l.mu.Unlock()
	return nil
}

// Prefix returns the filename prefix
func (l *Library) Prefix() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefix
}

// SetPrefix changes the filename prefix
func (l *Library) SetPrefix(prefix string) error {
	if strings.ContainsAny(prefix, `/\`) {
		return fmt.Errorf("photostore: prefix %q contains a path separator", prefix)
	}
	l.mu.Lock()
	l.prefix = prefix
	l.mu.Unlock()
	return nil
}

// Format returns the output format
func (l *Library) Format() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.format
}

// SetFormat changes the output format
func (l *Library) SetFormat(format string) error {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "jpeg":
		format = "jpg"
	case "tiff":
		format = "tif"
	}
	for _, f := range Formats {
		if f == format {
			l.mu.Lock()
			l.format = format
			l.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// Enabled reports if Save writes anything
func (l *Library) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetEnabled turns saving on or off
func (l *Library) SetEnabled(b bool) {
	l.mu.Lock()
	l.enabled = b
	l.mu.Unlock()
}

// Latest returns the path of the most recent save
func (l *Library) Latest() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == "" {
		return "", ErrNothingSaved
	}
	return l.last, nil
}

// dayFolder returns the yyyy-mm-dd subfolder for t
func dayFolder(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}

// nextCounter scans fldr and returns one more than the largest counter used
// by files with the given prefix and extension.
func nextCounter(fldr, prefix, ext string) (int, error) {
	entries, err := os.ReadDir(fldr)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fn := e.Name()
		if !strings.HasSuffix(fn, ext) || !strings.HasPrefix(fn, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fn, prefix), ext))
		if err != nil {
			continue
		}
		if n > count {
			count = n
		}
	}
	return count + 1, nil
}

// Save writes img to the library and returns the path written
func (l *Library) Save(img image.Image, meta Meta) (string, error) {
	if img == nil {
		return "", errors.New("photostore: no image")
	}
	// the lock is held for the whole write so two saves never claim one counter
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return "", ErrDisabled
	}
	if l.denied {
		return "", ErrAccessDenied
	}

	taken := meta.Taken
	if taken.IsZero() {
		taken = time.Now()
	}
	fldr := filepath.Join(l.root, dayFolder(taken))
	if err := os.MkdirAll(fldr, 0o777); err != nil {
		return "", err
	}
	ext := "." + l.format
	n, err := nextCounter(fldr, l.prefix, ext)
	if err != nil {
		return "", err
	}
	fn := filepath.Join(fldr, fmt.Sprintf("%s%06d%s", l.prefix, n, ext))

	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return "", err
	}
	if l.format == "fits" {
		err = WriteFits(f, img, meta)
	} else {
		err = encode(f, img, l.format)
	}
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fn)
		return "", err
	}
	l.last = fn
	return fn, nil
}

// SaveAsync saves on a new goroutine and reports through done, which may be nil.
// Nothing is retried.
func (l *Library) SaveAsync(img image.Image, meta Meta, done func(path string, err error)) {
	go func() {
		fn, err := l.Save(img, meta)
		if done != nil {
			done(fn, err)
		}
	}()
}

func encode(f *os.File, img image.Image, format string) error {
	ifmt, err := imaging.FormatFromExtension(format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return imaging.Encode(f, img, ifmt, imaging.JPEGQuality(92))
}
