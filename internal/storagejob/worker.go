package storagejob

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/taskkart/backend/internal/files"
)

// DeleteFileArgs asks the janitor to remove an object that is no longer
// referenced (replaced task attachment, deleted task).
type DeleteFileArgs struct {
	Key string `json:"key"`
}

func (DeleteFileArgs) Kind() string { return "delete_file" }

// EnqueueDeleteFunc enqueues a DeleteFileArgs job. Provided by main using
// river.Client.Insert.
type EnqueueDeleteFunc func(ctx context.Context, key string) error

type DeleteFileWorker struct {
	river.WorkerDefaults[DeleteFileArgs]
	store files.Store
	log   *slog.Logger
}

func NewDeleteFileWorker(store files.Store, log *slog.Logger) *DeleteFileWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DeleteFileWorker{store: store, log: log}
}

func (w *DeleteFileWorker) Work(ctx context.Context, job *river.Job[DeleteFileArgs]) error {
	if err := w.store.Delete(ctx, job.Args.Key); err != nil {
		return fmt.Errorf("delete file %s: %w", job.Args.Key, err)
	}
	w.log.Info("deleted orphaned file", "key", job.Args.Key)
	return nil
}
