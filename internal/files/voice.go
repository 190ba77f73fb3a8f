package files

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxClipSize keeps a clip inside the relay's default 1 MiB frame
// limit even after base64 encoding in the JSON codec.
const DefaultMaxClipSize = 700 * 1024

var (
	ErrEmptyClip    = errors.New("clip is empty")
	ErrClipTooLarge = errors.New("clip is too large")
	ErrNotAudio     = errors.New("not an audio file")
)

// Clip is a validated voice clip ready to send.
type Clip struct {
	// Path is the absolute path to the file
	Path string

	// Name is the filename (without directory)
	Name string

	// Type is the detected MIME type (e.g., "audio/ogg", "video/webm")
	Type string

	Data []byte
}

// Size is the clip length in bytes.
func (c *Clip) Size() int64 { return int64(len(c.Data)) }

// LoadClip reads and validates a voice clip. maxSize <= 0 means
// DefaultMaxClipSize.
func LoadClip(path string, maxSize int64) (*Clip, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxClipSize
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file does not exist", path)
		}
		return nil, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyClip)
	}
	if stat.Size() > maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", path, ErrClipTooLarge, stat.Size(), maxSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot read file (check permissions): %w", path, err)
	}

	mimeType, ok := audioType(absPath, data)
	if !ok {
		return nil, fmt.Errorf("%s: %w (detected %s)", path, ErrNotAudio, mimeType)
	}

	return &Clip{
		Path: absPath,
		Name: filepath.Base(absPath),
		Type: mimeType,
		Data: data,
	}, nil
}

// audioType detects the clip's MIME type from its extension, falling back to
// content sniffing, and reports whether it is something a browser can play.
func audioType(path string, data []byte) (string, bool) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}

	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return mimeType, true
	case mimeType == "video/webm", mimeType == "application/ogg":
		// Browser recorders produce audio-only WebM and Ogg containers.
		return mimeType, true
	default:
		return mimeType, false
	}
}
