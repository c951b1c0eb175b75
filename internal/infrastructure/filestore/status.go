package filestore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

// FileStatus reports one configured data file on disk and in the registry.
type FileStatus struct {
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	IsFile    bool   `json:"isFile"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

type SportStatus struct {
	Sport      sport.ID     `json:"sport"`
	Uploaded   bool         `json:"uploaded"`
	UploadedAt *time.Time   `json:"uploadedAt,omitempty"`
	Files      []FileStatus `json:"files"`
}

// Status inspects the data directory for each sport's files.
func (r *Registry) Status(sports []sport.Sport) []SportStatus {
	uploadedAt := make(map[string]time.Time)
	for _, e := range r.entries.Snapshot() {
		uploadedAt[e.Key] = e.StoredAt
	}

	out := make([]SportStatus, 0, len(sports))
	for _, s := range sports {
		row := SportStatus{Sport: s.ID, Files: make([]FileStatus, 0, len(s.DataFiles))}
		if at, ok := uploadedAt[string(s.ID)]; ok {
			row.Uploaded = true
			row.UploadedAt = &at
		}
		for _, df := range s.DataFiles {
			fileStatus := FileStatus{Path: df.Path}
			if info, err := os.Stat(filepath.Join(r.dataDir, df.Path)); err == nil {
				fileStatus.Exists = true
				fileStatus.IsFile = info.Mode().IsRegular()
				fileStatus.SizeBytes = info.Size()
			}
			row.Files = append(row.Files, fileStatus)
		}
		out = append(out, row)
	}
	return out
}
