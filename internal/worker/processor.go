// Package worker consumes ingest jobs: it pulls uploaded media objects from
// the blob store, extracts what metadata it can, and registers the asset in
// the catalog so the server starts listing it.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"photodrop/internal/blobstore"
	"photodrop/internal/catalog"
	"photodrop/internal/model"
	"photodrop/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	repo  *catalog.Repository
	blobs *blobstore.Store
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo *catalog.Repository, blobs *blobstore.Store) *Processor {
	return &Processor{repo: repo, blobs: blobs}
}

// Handler registers the ingest job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestMediaTask, p.handleIngest)
	return mux
}

func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	data, err := p.blobs.Fetch(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", payload.ObjectKey, err)
	}
	desc := DescribeMedia(data, payload.FileName)
	created := payload.CreatedAt.UTC()
	modified := payload.ModifiedAt.UTC()
	rec := &catalog.Record{
		Asset: model.Asset{
			ID:         payload.AssetID,
			CreatedAt:  &created,
			ModifiedAt: &modified,
			Kind:       desc.Kind,
			Width:      desc.Width,
			Height:     desc.Height,
		},
		FileName:      payload.FileName,
		ObjectKey:     payload.ObjectKey,
		ContentType:   desc.ContentType,
		LiveVideoKey:  payload.LiveVideoKey,
		LiveVideoName: payload.LiveVideoName,
	}
	if payload.LiveVideoKey != "" {
		rec.Asset.Subtypes = append(rec.Asset.Subtypes, model.SubtypeLivePhoto)
	}
	if err := p.repo.Insert(ctx, rec); err != nil {
		return fmt.Errorf("register %s: %w", payload.AssetID, err)
	}
	log.Printf("asset %s ingested (%s, %d bytes)", payload.AssetID, desc.Kind, len(data))
	return nil
}
