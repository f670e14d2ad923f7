package blocklist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrSourceMissing means the blocklist does not exist. It is a policy
	// decision, not a fault.
	ErrSourceMissing = errors.New("blocklist source not found")

	// ErrSourceUnreadable covers permission and I/O errors.
	ErrSourceUnreadable = errors.New("blocklist source unreadable")

	// ErrRefreshTimeout is returned when a refresh exceeds its time bound.
	ErrRefreshTimeout = errors.New("blocklist refresh timed out")
)

// Source provides the complete current blocklist.
type Source interface {
	Load(ctx context.Context) (Set, error)
	String() string
}

// FileSource reads a plain text file with one IP per line.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Path() string {
	return f.path
}

func (f *FileSource) String() string {
	return f.path
}

// Load reads the whole file. Errors wrap ErrSourceMissing,
// ErrSourceUnreadable or ErrRefreshTimeout.
func (f *FileSource) Load(ctx context.Context) (Set, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, fmt.Errorf("%w: %w", ErrSourceMissing, err)
		}
		return Set{}, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer file.Close()

	set, err := ReadSet(ctx, file)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Set{}, fmt.Errorf("%w: %s: %w", ErrRefreshTimeout, f.path, err)
		}
		return Set{}, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, f.path, err)
	}
	return set, nil
}
