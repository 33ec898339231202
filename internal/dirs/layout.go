package dirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/catalog"
)

const AppName = "qurandl"

// Layout maps task identities to files under the downloads root.
type Layout struct {
	Root string
}

func (l Layout) RecitationsDir() string {
	return filepath.Join(l.Root, "recitations")
}

func (l Layout) ReciterDir(r catalog.Reciter) string {
	return filepath.Join(l.RecitationsDir(), r.Dir)
}

func (l Layout) VersePath(r catalog.Reciter, surah, verse int) string {
	return filepath.Join(l.ReciterDir(r), catalog.VerseFile(surah, verse))
}

func (l Layout) ContentDir(kind catalog.ContentKind) string {
	if kind == catalog.Tafsir {
		return filepath.Join(l.Root, "tafasir")
	}
	return filepath.Join(l.Root, "translations")
}

// SyncDir holds the git checkout of the content repository.
func (l Layout) SyncDir() string {
	return filepath.Join(l.Root, "content")
}

func (l Layout) ResourcePath(kind catalog.ContentKind, res catalog.Resource) string {
	return filepath.Join(l.ContentDir(kind), res.File)
}

// CreateSkeleton creates the downloads root with one directory per reciter
// and the content directories.
func (l Layout) CreateSkeleton(reciters []catalog.Reciter) error {
	dirs := []string{l.ContentDir(catalog.Tafsir), l.ContentDir(catalog.Translation)}
	for _, r := range reciters {
		dirs = append(dirs, l.ReciterDir(r))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %v", dir, err)
		}
	}
	log.Debug().Str("op", "dirs/layout").Msgf("directory skeleton ready under %s", l.Root)
	return nil
}

// Missing lists the verses of a surah that have no file on disk.
func (l Layout) Missing(r catalog.Reciter, surah int) ([]int, error) {
	count, err := catalog.VerseCount(surah)
	if err != nil {
		return nil, err
	}
	var missing []int
	for verse := 1; verse <= count; verse++ {
		info, err := os.Stat(l.VersePath(r, surah, verse))
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
			missing = append(missing, verse)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// ConfigDir is the per-user configuration directory.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

// DefaultDownloadsDir follows XDG_DATA_HOME and falls back to
// ~/.local/share.
func DefaultDownloadsDir() (string, error) {
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}
