package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/frames"
	"github.com/dmitrijs2005/camvault/internal/server/models"
)

// MediaPolicy is the immutable configuration of the media gateway.
type MediaPolicy struct {
	ArchiveDir string
	LiveDir    string
	PageSize   int
	// MaxPage bounds the page parameter; MaxPage*PageSize covers the
	// archive capacity.
	MaxPage int
}

// MediaService is the read-only view over the frame directories written by
// the capture loop. It never creates, renames or removes files.
type MediaService struct {
	policy MediaPolicy
}

func NewMediaService(policy MediaPolicy) *MediaService {
	return &MediaService{policy: policy}
}

// ListFrames returns one page of the archive in ascending capture order.
// Pages below 1 are treated as 1. A page past the end of a non-empty
// archive is not found; the first page of an empty archive is empty.
func (s *MediaService) ListFrames(ctx context.Context, page int) (*models.FramePage, error) {
	if page < 1 {
		page = 1
	}
	if page > s.policy.MaxPage {
		return nil, common.ErrPageOutOfRange
	}

	names, err := frames.List(s.policy.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("error listing archive: %w", err)
	}

	total := len(names)
	start := (page - 1) * s.policy.PageSize
	if start >= total && total > 0 {
		return nil, fmt.Errorf("%w: page %d", common.ErrorNotFound, page)
	}
	end := min(start+s.policy.PageSize, total)

	out := []string{}
	if start < end {
		out = append(out, names[start:end]...)
	}

	return &models.FramePage{Frames: out, Page: page, Total: total}, nil
}

// FetchFrame reads one archived frame. The name is checked against the
// frame pattern before it is joined to any path.
func (s *MediaService) FetchFrame(ctx context.Context, name string) (*models.FrameData, error) {
	if !frames.Valid(name) {
		return nil, common.ErrInvalidFilename
	}
	return readFrame(s.policy.ArchiveDir, name)
}

// FetchLive reads the current live frame.
func (s *MediaService) FetchLive(ctx context.Context) (*models.FrameData, error) {
	name, err := s.LiveName(ctx)
	if err != nil {
		return nil, err
	}
	return readFrame(s.policy.LiveDir, name)
}

// LiveName returns the filename of the current live frame. Should a reader
// catch the slot between publish and cleanup, the newer frame wins.
func (s *MediaService) LiveName(ctx context.Context) (string, error) {
	names, err := frames.List(s.policy.LiveDir)
	if err != nil {
		return "", fmt.Errorf("error listing live slot: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no live frame", common.ErrorNotFound)
	}
	return names[len(names)-1], nil
}

func readFrame(dir, name string) (*models.FrameData, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return nil, fmt.Errorf("error reading frame: %w", err)
	}
	return &models.FrameData{Name: name, Data: data}, nil
}
