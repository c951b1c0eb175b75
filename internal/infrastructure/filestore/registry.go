package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/gemini"
	"github.com/riskibarqy/sports-insights/internal/platform/cache"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"github.com/riskibarqy/sports-insights/internal/usecase"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultWorkers       = 4
	defaultUploadTimeout = 5 * time.Minute
)

// Uploader is the subset of the Gemini client the registry needs.
type Uploader interface {
	UploadFile(ctx context.Context, displayName, mimeType string, data []byte) (gemini.File, error)
	WaitActive(ctx context.Context, files []gemini.File) ([]gemini.File, error)
}

// UploadRecorder receives one call per uploaded data file.
type UploadRecorder interface {
	RecordUpload(sport string, err error)
}

type Config struct {
	DataDir       string
	Workers       int
	TTL           time.Duration
	UploadTimeout time.Duration
	Logger        *logging.Logger
	Recorder      UploadRecorder
}

// Registry maps sports to their uploaded data files. Files are uploaded on
// first use; concurrent first requests for a sport share one upload.
type Registry struct {
	uploader      Uploader
	dataDir       string
	uploadTimeout time.Duration
	logger        *logging.Logger
	recorder      UploadRecorder
	entries       *cache.Store[[]usecase.RemoteFile]
	workers       *ants.Pool
}

func NewRegistry(uploader Uploader, cfg Config) (*Registry, error) {
	if uploader == nil {
		return nil, errors.New("filestore: uploader is required")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	workerPool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create upload worker pool: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}

	return &Registry{
		uploader:      uploader,
		dataDir:       cfg.DataDir,
		uploadTimeout: timeout,
		logger:        logger,
		recorder:      cfg.Recorder,
		entries:       cache.NewStore[[]usecase.RemoteFile](cfg.TTL),
		workers:       workerPool,
	}, nil
}

// Files returns the active uploaded files for s, uploading them if needed.
// The upload itself is detached from ctx so an abandoned request does not
// fail the callers sharing it.
func (r *Registry) Files(ctx context.Context, s sport.Sport) ([]usecase.RemoteFile, error) {
	files, err := r.entries.GetOrLoad(ctx, string(s.ID), func(ctx context.Context) ([]usecase.RemoteFile, error) {
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.uploadTimeout)
		defer cancel()
		return r.upload(uploadCtx, s)
	})
	if err != nil {
		return nil, err
	}
	return append([]usecase.RemoteFile(nil), files...), nil
}

// Invalidate drops the cached handles of a sport so the next use re-uploads.
func (r *Registry) Invalidate(ctx context.Context, id sport.ID) {
	r.entries.Delete(ctx, string(id))
}

// Warm uploads the given sports concurrently. It returns the combined errors.
func (r *Registry) Warm(ctx context.Context, sports []sport.Sport) error {
	p := pool.New().WithContext(ctx)
	for _, s := range sports {
		s := s
		p.Go(func(ctx context.Context) error {
			started := time.Now()
			if _, err := r.Files(ctx, s); err != nil {
				return fmt.Errorf("warm %s: %w", s.ID, err)
			}
			r.logger.InfoContext(ctx, "sport data files warmed", "sport", string(s.ID), "duration", time.Since(started))
			return nil
		})
	}
	return p.Wait()
}

// Close releases the upload workers.
func (r *Registry) Close() {
	r.workers.Release()
}

func (r *Registry) upload(ctx context.Context, s sport.Sport) ([]usecase.RemoteFile, error) {
	if len(s.DataFiles) == 0 {
		return nil, nil
	}

	uploaded := make([]gemini.File, len(s.DataFiles))
	errs := make([]error, len(s.DataFiles))
	var wg sync.WaitGroup
	for i, df := range s.DataFiles {
		i, df := i, df
		wg.Add(1)
		if err := r.workers.Submit(func() {
			defer wg.Done()
			uploaded[i], errs[i] = r.uploadOne(ctx, s, df)
			if r.recorder != nil {
				r.recorder.RecordUpload(string(s.ID), errs[i])
			}
		}); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit upload to worker pool: %w", err)
		}
	}
	wg.Wait()

	var combined error
	for _, err := range errs {
		combined = crerr.CombineErrors(combined, err)
	}
	if combined != nil {
		return nil, combined
	}

	active, err := r.uploader.WaitActive(ctx, uploaded)
	if err != nil {
		return nil, crerr.Wrapf(err, "wait for %s files", s.ID)
	}

	refs := make([]usecase.RemoteFile, 0, len(active))
	for _, f := range active {
		refs = append(refs, f.Ref())
	}
	r.logger.InfoContext(ctx, "sport data files ready", "sport", string(s.ID), "files", len(refs))
	return refs, nil
}

func (r *Registry) uploadOne(ctx context.Context, s sport.Sport, df sport.DataFile) (gemini.File, error) {
	path := filepath.Join(r.dataDir, df.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return gemini.File{}, fmt.Errorf("%w: data file %s", usecase.ErrNotFound, df.Path)
		}
		return gemini.File{}, fmt.Errorf("read data file %s: %w", df.Path, err)
	}

	file, err := r.uploader.UploadFile(ctx, s.DisplayName(df), df.MimeType, data)
	if err != nil {
		return gemini.File{}, crerr.Wrapf(err, "upload %s", df.Path)
	}
	return file, nil
}
