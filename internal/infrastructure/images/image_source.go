package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// Source разрешает URL изображения товара в байты. URL собственного
// объектного хранилища читаются напрямую из MinIO, все остальные — по HTTP.
type Source struct {
	imageRepo  usecase.ImageRepository
	httpClient *http.Client
	minioCfg   *cfg.MinIOCfg
	maxSize    int64
	logger     logger.Logger
}

func NewSource(imageRepo usecase.ImageRepository, minioCfg *cfg.MinIOCfg,
	inferenceCfg *cfg.InferenceCfg, logger logger.Logger) *Source {
	return &Source{
		imageRepo:  imageRepo,
		httpClient: &http.Client{Timeout: inferenceCfg.RequestTimeout},
		minioCfg:   minioCfg,
		maxSize:    inferenceCfg.MaxImageSize,
		logger:     logger,
	}
}

func (s *Source) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "images.Source.FetchImage"

	if rawURL == "" {
		return nil, e.Wrap(op, e.ErrEmptyImageURL)
	}

	if key, ok := s.objectKey(rawURL); ok {
		return s.imageRepo.Download(ctx, key)
	}

	return s.fetchHTTP(ctx, rawURL)
}

// objectKey выделяет ключ объекта из URL, указывающего на собственное
// хранилище: host совпадает с endpoint MinIO, первый сегмент пути — бакет.
func (s *Source) objectKey(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if u.Host != s.minioCfg.MinioEndpoint {
		return "", false
	}

	prefix := "/" + s.minioCfg.BucketName + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(u.Path, prefix)
	if key == "" {
		return "", false
	}

	return key, true
}

func (s *Source) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "images.Source.fetchHTTP"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, e.Wrap(op, fmt.Errorf("%w: %d", e.ErrUnexpectedStatus, resp.StatusCode))
	}

	// Лимит +1 байт: ровно maxSize байт допустимы, превышение различимо.
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, e.Wrap(op, e.ErrImageTooLarge)
	}

	return data, nil
}
