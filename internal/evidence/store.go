// Package evidence persists the camera frames that triggered violations so
// reviewers can audit the final report.
package evidence

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"
)

type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save writes the frame as JPEG under <dir>/<sessionID>/ and returns the
// stored path. One call covers every violation found in that frame.
func (s *Store) Save(sessionID string, frameNumber int64, img image.Image) (string, error) {
	dir := filepath.Join(s.Dir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("violation_%06d_%s_%03d.jpg",
		frameNumber, now.Format("20060102_150405"), now.Nanosecond()/1e6)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 100}); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return path, nil
}
