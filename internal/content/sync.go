package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

var ErrNoRepository = errors.New("no content repository configured")

type SyncOptions struct {
	Repo     string
	Dir      string
	Branch   string
	Depth    int
	Token    string
	SSHKey   string
	Progress func(string)
}

type SyncResult struct {
	Dir      string
	Head     string
	Cloned   bool
	UpToDate bool
	Size     int64
}

type progressWriter struct {
	streamFunc func(string)
}

func (p *progressWriter) Write(data []byte) (int, error) {
	// sideband progress uses \r to redraw a line
	for _, line := range strings.FieldsFunc(string(data), func(r rune) bool { return r == '\r' || r == '\n' }) {
		if line = strings.TrimSpace(line); line != "" && p.streamFunc != nil {
			p.streamFunc(line)
		}
	}
	return len(data), nil
}

// Sync clones the content repository into Dir, or pulls it when Dir already
// holds a clone.
func Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	result := SyncResult{Dir: opts.Dir}
	if opts.Repo == "" {
		return result, ErrNoRepository
	}
	auth, err := authMethod(opts.Repo, opts.Token, opts.SSHKey)
	if err != nil {
		return result, err
	}
	progress := &progressWriter{streamFunc: opts.Progress}

	repo, err := git.PlainOpen(opts.Dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		cloneOptions := &git.CloneOptions{
			URL:      opts.Repo,
			Auth:     auth,
			Progress: progress,
			Depth:    opts.Depth,
		}
		if opts.Branch != "" {
			cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
			cloneOptions.SingleBranch = true
		}
		log.Debug().Str("op", "content/sync").Msgf("cloning %s into %s", opts.Repo, opts.Dir)
		repo, err = git.PlainCloneContext(ctx, opts.Dir, false, cloneOptions)
		if err != nil {
			return result, fmt.Errorf("git clone failed: %v", err)
		}
		result.Cloned = true
	case err != nil:
		return result, fmt.Errorf("error opening %s: %v", opts.Dir, err)
	default:
		wt, err := repo.Worktree()
		if err != nil {
			return result, fmt.Errorf("error opening worktree: %v", err)
		}
		pullOptions := &git.PullOptions{
			RemoteName: git.DefaultRemoteName,
			Auth:       auth,
			Progress:   progress,
			Depth:      opts.Depth,
		}
		if opts.Branch != "" {
			pullOptions.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
			pullOptions.SingleBranch = true
		}
		log.Debug().Str("op", "content/sync").Msgf("pulling %s", opts.Dir)
		err = wt.PullContext(ctx, pullOptions)
		switch {
		case errors.Is(err, git.NoErrAlreadyUpToDate):
			result.UpToDate = true
		case err != nil:
			return result, fmt.Errorf("git pull failed: %v", err)
		}
	}

	if head, err := repo.Head(); err == nil {
		result.Head = head.Hash().String()
	}
	if size, err := dirSize(opts.Dir); err == nil {
		result.Size = size
	}
	return result, nil
}

func dirSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == git.GitDirName {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}
