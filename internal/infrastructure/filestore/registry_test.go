package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/gemini"
	"github.com/riskibarqy/sports-insights/internal/usecase"
)

type fakeUploader struct {
	uploads atomic.Int32
	delay   time.Duration
	failOn  string

	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) UploadFile(_ context.Context, displayName, mimeType string, _ []byte) (gemini.File, error) {
	f.uploads.Add(1)
	time.Sleep(f.delay)
	if displayName == f.failOn {
		return gemini.File{}, errors.New("quota exceeded")
	}
	f.mu.Lock()
	f.names = append(f.names, displayName)
	f.mu.Unlock()
	return gemini.File{
		Name:        "files/" + displayName,
		DisplayName: displayName,
		MimeType:    mimeType,
		URI:         "https://files/" + displayName,
		State:       gemini.FileStateProcessing,
	}, nil
}

func (f *fakeUploader) WaitActive(_ context.Context, files []gemini.File) ([]gemini.File, error) {
	out := make([]gemini.File, len(files))
	for i, file := range files {
		file.State = gemini.FileStateActive
		out[i] = file
	}
	return out, nil
}

type countingRecorder struct {
	ok, failed atomic.Int32
}

func (r *countingRecorder) RecordUpload(_ string, err error) {
	if err != nil {
		r.failed.Add(1)
		return
	}
	r.ok.Add(1)
}

func writeDataFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("name,value\na,1\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func testSport(files ...string) sport.Sport {
	s := sport.Sport{ID: sport.NBA, Name: "NBA", HasPlayers: true}
	for _, f := range files {
		s.DataFiles = append(s.DataFiles, sport.DataFile{Path: f, MimeType: "text/csv"})
	}
	return s
}

func TestRegistryFiles_UploadsOnceAndPreservesOrder(t *testing.T) {
	t.Parallel()

	dir := writeDataFiles(t, "players.csv", "teams.csv")
	uploader := &fakeUploader{delay: 10 * time.Millisecond}
	recorder := &countingRecorder{}
	registry, err := NewRegistry(uploader, Config{DataDir: dir, Workers: 2, Recorder: recorder})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer registry.Close()

	s := testSport("players.csv", "teams.csv")
	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	results := make([][]usecase.RemoteFile, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			files, err := registry.Files(context.Background(), s)
			if err != nil {
				t.Errorf("files: %v", err)
			}
			results[i] = files
		}(i)
	}
	wg.Wait()

	if got := uploader.uploads.Load(); got != 2 {
		t.Fatalf("uploads = %d, want 2", got)
	}
	if got := recorder.ok.Load(); got != 2 {
		t.Fatalf("recorded uploads = %d, want 2", got)
	}
	for _, files := range results {
		if len(files) != 2 || files[0].DisplayName != "NBA - players.csv" || files[1].DisplayName != "NBA - teams.csv" {
			t.Fatalf("unexpected files: %+v", files)
		}
	}
}

func TestRegistryFiles_MissingFileIsNotFound(t *testing.T) {
	t.Parallel()

	dir := writeDataFiles(t, "players.csv")
	registry, err := NewRegistry(&fakeUploader{}, Config{DataDir: dir})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer registry.Close()

	_, err = registry.Files(context.Background(), testSport("players.csv", "missing.csv"))
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryFiles_FailureIsNotCached(t *testing.T) {
	t.Parallel()

	dir := writeDataFiles(t, "players.csv")
	uploader := &fakeUploader{failOn: "NBA - players.csv"}
	registry, err := NewRegistry(uploader, Config{DataDir: dir})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer registry.Close()

	s := testSport("players.csv")
	if _, err := registry.Files(context.Background(), s); err == nil {
		t.Fatalf("expected upload failure")
	}

	uploader.failOn = ""
	files, err := registry.Files(context.Background(), s)
	if err != nil || len(files) != 1 {
		t.Fatalf("retry = (%v, %v), want one file", files, err)
	}
}

func TestRegistryInvalidate_ForcesReupload(t *testing.T) {
	t.Parallel()

	dir := writeDataFiles(t, "players.csv")
	uploader := &fakeUploader{}
	registry, err := NewRegistry(uploader, Config{DataDir: dir})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer registry.Close()

	s := testSport("players.csv")
	ctx := context.Background()
	if _, err := registry.Files(ctx, s); err != nil {
		t.Fatalf("files: %v", err)
	}
	registry.Invalidate(ctx, s.ID)
	if _, err := registry.Files(ctx, s); err != nil {
		t.Fatalf("files: %v", err)
	}
	if got := uploader.uploads.Load(); got != 2 {
		t.Fatalf("uploads = %d, want 2", got)
	}
}

func TestRegistryWarmAndStatus(t *testing.T) {
	t.Parallel()

	dir := writeDataFiles(t, "nba.csv", "afl.csv")
	registry, err := NewRegistry(&fakeUploader{}, Config{DataDir: dir})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer registry.Close()

	nba := testSport("nba.csv")
	afl := sport.Sport{ID: sport.AFL, DataFiles: []sport.DataFile{{Path: "afl.csv", MimeType: "text/csv"}}}
	ghost := sport.Sport{ID: sport.EPL, DataFiles: []sport.DataFile{{Path: "epl.csv", MimeType: "text/csv"}}}

	if err := registry.Warm(context.Background(), []sport.Sport{nba, afl}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	status := registry.Status([]sport.Sport{nba, afl, ghost})
	if len(status) != 3 {
		t.Fatalf("unexpected status rows: %+v", status)
	}
	if !status[0].Uploaded || !status[1].Uploaded || status[2].Uploaded {
		t.Fatalf("unexpected upload flags: %+v", status)
	}
	if !status[0].Files[0].Exists || status[2].Files[0].Exists {
		t.Fatalf("unexpected existence flags: %+v", status)
	}
}
