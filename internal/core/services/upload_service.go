package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/utils"
)

const sniffLen = 3072

type UploadConfig struct {
	URLPrefix    string
	MaxSizeBytes int64
	AllowedMIMEs []string
}

// UploadService stores chat media after checking size and sniffed content type
type UploadService struct {
	repo   ports.MediaRepository
	cfg    UploadConfig
	clock  utils.Clock
	logger *zap.SugaredLogger
}

func NewUploadService(repo ports.MediaRepository, cfg UploadConfig, clock utils.Clock, logger *zap.SugaredLogger) *UploadService {
	if clock == nil {
		clock = utils.SystemClock
	}
	cfg.URLPrefix = strings.TrimSuffix(cfg.URLPrefix, "/")
	return &UploadService{repo: repo, cfg: cfg, clock: clock, logger: logger}
}

// MaxSize returns the largest accepted upload
func (s *UploadService) MaxSize() int64 {
	return s.cfg.MaxSizeBytes
}

// Upload stores content and returns its public URL. size is the declared
// length, or -1 when unknown; the stream is bounded either way.
func (s *UploadService) Upload(ctx context.Context, fileName string, size int64, content io.Reader) (domain.UploadResult, error) {
	if content == nil {
		return domain.UploadResult{}, domain.ErrMissingFile
	}
	if size > s.cfg.MaxSizeBytes {
		return domain.UploadResult{}, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, size, s.cfg.MaxSizeBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.UploadResult{}, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return domain.UploadResult{}, domain.ErrMissingFile
	}

	mt := mimetype.Detect(head)
	kind, ok := s.classify(mt)
	if !ok {
		return domain.UploadResult{}, fmt.Errorf("%w: %s", domain.ErrDisallowedMedia, mt.String())
	}

	name := fmt.Sprintf("%d_%s", s.clock().UnixMilli(), utils.SafeFileName(fileName))
	body := &boundedReader{
		r:   io.MultiReader(bytes.NewReader(head), content),
		max: s.cfg.MaxSizeBytes,
	}
	if err := s.repo.Store(ctx, name, body); err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return domain.UploadResult{}, fmt.Errorf("%w: exceeds %d bytes", domain.ErrFileTooLarge, s.cfg.MaxSizeBytes)
		}
		return domain.UploadResult{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	s.logger.Infow("Chat media uploaded", "name", name, "mime", mt.String(), "bytes", body.read)
	return domain.UploadResult{
		URL:  s.cfg.URLPrefix + "/" + name,
		Type: kind,
	}, nil
}

func (s *UploadService) classify(mt *mimetype.MIME) (domain.MediaKind, bool) {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if !mt.Is(allowed) {
			continue
		}
		switch {
		case strings.HasPrefix(allowed, "image/"):
			return domain.MediaImage, true
		case strings.HasPrefix(allowed, "video/"):
			return domain.MediaVideo, true
		}
	}
	return "", false
}

// boundedReader fails with ErrFileTooLarge once more than max bytes were read
type boundedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.max {
		return n, domain.ErrFileTooLarge
	}
	return n, err
}
