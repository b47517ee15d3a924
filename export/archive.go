package export

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
	"github.com/xiaoyuanzhu-com/claudechat/transcript"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

// Archive names used inside a backup.
const (
	HistoryEntry = "chat_history.json"
	ProjectsDir  = "projects"
	TodosDir     = "todos"
)

// Exporter bundles the on-disk stores into portable files.
type Exporter struct {
	transcripts *transcript.Store
	tasks       *tasks.Store
	historyPath string
}

// New creates an exporter.
func New(transcripts *transcript.Store, taskStore *tasks.Store, historyPath string) *Exporter {
	return &Exporter{transcripts: transcripts, tasks: taskStore, historyPath: historyPath}
}

// Backup writes a tar.gz holding the history cache, every transcript under
// projects/<bucket>/ and every task list under todos/. When sessionIDs is
// non-empty only those sessions are included. It returns the number of
// sessions written.
func (e *Exporter) Backup(ctx context.Context, w io.Writer, sessionIDs ...string) (int, error) {
	want := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}

	files, err := e.transcripts.List()
	if err != nil {
		return 0, err
	}

	entries := make(map[string]string)
	if len(want) == 0 && utils.FileExists(e.historyPath) {
		entries[e.historyPath] = HistoryEntry
	}
	count := 0
	for _, f := range files {
		if len(want) > 0 && !want[f.SessionID] {
			continue
		}
		bucket := filepath.Base(filepath.Dir(f.Path))
		entries[f.Path] = path.Join(ProjectsDir, bucket, filepath.Base(f.Path))
		if e.tasks.Exists(f.SessionID) {
			entries[e.tasks.Path(f.SessionID)] = path.Join(TodosDir, f.SessionID+".json")
		}
		count++
	}
	if len(want) > 0 && count == 0 {
		return 0, fmt.Errorf("%w: %v", transcript.ErrNotFound, sessionIDs)
	}

	infos, err := archives.FilesFromDisk(ctx, nil, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to collect files: %w", err)
	}

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, w, infos); err != nil {
		return 0, fmt.Errorf("failed to write archive: %w", err)
	}

	log.Info().Int("sessions", count).Int("files", len(infos)).Msg("backup written")
	return count, nil
}
