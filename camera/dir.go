package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// frameExts are the file extensions a DirDevice will serve
var frameExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// DirDevice is a simulated camera which returns the image files of a folder,
// in name order, one per capture, wrapping around at the end.
// The folder is scanned when the device is opened.
type DirDevice struct {
	// Dir is the folder holding the frames
	Dir string

	mu     sync.Mutex
	frames []string
	next   int
}

// Name returns "dir:" and the folder
func (d *DirDevice) Name() string {
	return "dir:" + d.Dir
}

// Open scans the folder for frames
func (d *DirDevice) Open() error {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return err
	}
	frames := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			frames = append(frames, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: %s", ErrNoFrames, d.Dir)
	}
	sort.Strings(frames)

	d.mu.Lock()
	d.frames = frames
	d.next = 0
	d.mu.Unlock()
	return nil
}

// Close forgets the scanned frames
func (d *DirDevice) Close() error {
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	return nil
}

// Capture returns the bytes of the next frame
func (d *DirDevice) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if len(d.frames) == 0 {
		d.mu.Unlock()
		return nil, ErrNoFrames
	}
	fn := d.frames[d.next]
	d.next = (d.next + 1) % len(d.frames)
	d.mu.Unlock()
	return os.ReadFile(fn)
}
