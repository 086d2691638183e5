package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"photodrop/internal/blobstore"
	"photodrop/internal/config"
	"photodrop/internal/library"
	"photodrop/internal/model"
	"photodrop/internal/queue"
)

// newIngestCmd uploads a directory of media into the catalog pipeline: bytes
// go to the blob store first, then an ingest job per asset tells the worker to
// describe the objects and register the catalog row. Live-photo pairs
// (IMG_0001.JPG + IMG_0001.MOV) become a single asset with a clip object, the
// same pairing rule the dev-mode server uses.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Upload a directory of media and queue it for catalog ingest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			scanned, err := library.FromDirectory(args[0])
			if err != nil {
				return err
			}
			assets, err := scanned.List(ctx, time.Time{})
			if err != nil {
				return err
			}
			if len(assets) == 0 {
				fmt.Println("no media found")
				return nil
			}

			blobs, err := blobstore.New(cfg)
			if err != nil {
				return err
			}
			if err := blobs.EnsureBucket(ctx); err != nil {
				return err
			}
			tasks := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer tasks.Close()

			for i := range assets {
				asset := &assets[i]
				payload, err := uploadAsset(ctx, blobs, scanned, asset)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", asset.ID, err)
				}
				if err := queue.EnqueueIngest(ctx, tasks, payload); err != nil {
					return fmt.Errorf("ingest %s: %w", asset.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s\n", payload.FileName, payload.AssetID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d asset(s) for ingest\n", len(assets))
			return nil
		},
	}
}

// uploadAsset pushes an asset's primary object, plus the live clip when one
// exists, into the blob store under fresh UUID keys and returns the job
// payload describing them.
func uploadAsset(ctx context.Context, blobs *blobstore.Store, lib library.Library, asset *model.Asset) (queue.IngestPayload, error) {
	assetID := uuid.NewString()
	payload := queue.IngestPayload{
		AssetID:    assetID,
		ModifiedAt: time.Now().UTC(),
	}
	if asset.CreatedAt != nil {
		payload.CreatedAt = asset.CreatedAt.UTC()
	} else {
		payload.CreatedAt = payload.ModifiedAt
	}

	if asset.IsLivePhoto() {
		live, err := lib.ExportLive(ctx, asset.ID)
		if err != nil {
			return queue.IngestPayload{}, err
		}
		photoKey := objectKey(assetID, live.Photo.Filename)
		if err := blobs.Upload(ctx, photoKey, bytes.NewReader(live.Photo.Data), int64(len(live.Photo.Data)), live.Photo.ContentType); err != nil {
			return queue.IngestPayload{}, err
		}
		payload.ObjectKey = photoKey
		payload.FileName = live.Photo.Filename
		if live.Video != nil {
			videoKey := objectKey(assetID, live.Video.Filename)
			if err := blobs.Upload(ctx, videoKey, bytes.NewReader(live.Video.Data), int64(len(live.Video.Data)), live.Video.ContentType); err != nil {
				return queue.IngestPayload{}, err
			}
			payload.LiveVideoKey = videoKey
			payload.LiveVideoName = live.Video.Filename
		}
		return payload, nil
	}

	export, err := lib.Export(ctx, asset.ID)
	if err != nil {
		return queue.IngestPayload{}, err
	}
	key := objectKey(assetID, export.Filename)
	if err := blobs.Upload(ctx, key, bytes.NewReader(export.Data), int64(len(export.Data)), export.ContentType); err != nil {
		return queue.IngestPayload{}, err
	}
	payload.ObjectKey = key
	payload.FileName = export.Filename
	return payload, nil
}

// objectKey namespaces objects per asset while keeping the original extension
// so content types can be rederived from the key if needed.
func objectKey(assetID, fileName string) string {
	return assetID + "/" + uuid.NewString() + filepath.Ext(fileName)
}
