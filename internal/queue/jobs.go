package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// IngestMediaTask is scheduled once per media file added to the catalog.
	IngestMediaTask = "media:ingest"
)

// IngestPayload is serialized into the task payload so the worker knows which
// objects to describe and register. The uploader has already placed the bytes
// in the blob store; the worker owns metadata extraction and the catalog row.
type IngestPayload struct {
	AssetID       string    `json:"asset_id"`
	ObjectKey     string    `json:"object_key"`
	FileName      string    `json:"file_name"`
	LiveVideoKey  string    `json:"live_video_key,omitempty"`
	LiveVideoName string    `json:"live_video_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// EnqueueIngest enqueues a media ingest job.
func EnqueueIngest(ctx context.Context, client *asynq.Client, payload IngestPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(IngestMediaTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue ingest task: %w", err)
	}
	return nil
}
