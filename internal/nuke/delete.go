package nuke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/safetyops/scnuke/internal/resource"
)

// pathDeleter describes a delete-by-path-id procedure. A non-nil
// archivePath means the backend requires an archive transition before
// it accepts the permanent delete.
type pathDeleter struct {
	archivePath func(id string) string
	deletePath  func(id string) string
}

// deleteSingle deletes items one call per item through the delete
// gate. Archive failures are swallowed: the item may already be
// archived, and the delete call is the authoritative outcome either
// way.
func (e *Engine) deleteSingle(ctx context.Context, kind resource.Kind, label string, items []resource.Item, d pathDeleter) {
	for _, it := range items {
		item := it
		err := e.deleteGate.Do(ctx, func() error {
			if d.archivePath != nil {
				_, _ = e.client.Do(ctx, http.MethodPost, d.archivePath(item.ID), nil, nil)
			}
			_, err := e.client.Do(ctx, http.MethodDelete, d.deletePath(item.ID), nil, nil)
			return err
		})
		if err != nil {
			e.tracker.RecordFailed(string(kind), fmt.Sprintf("%s %s: %v", label, item.ID, err), 1)
			continue
		}
		e.tracker.RecordDeleted(string(kind), 1)
		e.logProcessed(kind, item.ID)
	}
}

// deleteByQuery deletes items whose identity is a composite key passed
// as query parameters. Items with a locally detected precondition
// failure never reach this function; the engine records them directly.
func (e *Engine) deleteByQuery(ctx context.Context, kind resource.Kind, label, path string, items []resource.Item) {
	for _, it := range items {
		item := it
		err := e.deleteGate.Do(ctx, func() error {
			_, err := e.client.Do(ctx, http.MethodDelete, path, item.Query, nil)
			return err
		})
		if err != nil {
			e.tracker.RecordFailed(string(kind), fmt.Sprintf("%s %s: %v", label, item.ID, err), 1)
			continue
		}
		e.tracker.RecordDeleted(string(kind), 1)
		e.logProcessed(kind, item.ID)
	}
}

// deleteActionBatch deletes up to actionDeleteBatch actions in one
// call. The endpoint gives no per-id results, so the whole batch
// succeeds or fails together.
func (e *Engine) deleteActionBatch(ctx context.Context, items []resource.Item) {
	if len(items) == 0 {
		return
	}
	ids := itemIDs(items)
	err := e.deleteGate.Do(ctx, func() error {
		_, err := e.client.Do(ctx, http.MethodPost, "/tasks/v1/actions/delete", nil, map[string]any{"ids": ids})
		return err
	})
	if err != nil {
		e.tracker.RecordFailed(string(resource.Actions),
			fmt.Sprintf("actions %v...: %v", preview(ids), err), len(ids))
		return
	}
	e.tracker.RecordDeleted(string(resource.Actions), len(ids))
	for _, id := range ids {
		e.logProcessed(resource.Actions, id)
	}
}

// deleteFolderBatch deletes up to siteDeleteBatch folders in one call.
// cascade_up removes emptied ancestor folders in the same request.
func (e *Engine) deleteFolderBatch(ctx context.Context, items []resource.Item) {
	if len(items) == 0 {
		return
	}
	ids := itemIDs(items)
	q := url.Values{}
	q.Set("cascade_up", "true")
	for _, id := range ids {
		q.Add("folder_ids", id)
	}
	err := e.deleteGate.Do(ctx, func() error {
		_, err := e.client.Do(ctx, http.MethodDelete, "/directory/v1/folders", q, nil)
		return err
	})
	if err != nil {
		e.tracker.RecordFailed(string(resource.Sites),
			fmt.Sprintf("sites %v...: %v", preview(ids), err), len(ids))
		return
	}
	e.tracker.RecordDeleted(string(resource.Sites), len(ids))
	for _, id := range ids {
		e.logProcessed(resource.Sites, id)
	}
}

func itemIDs(items []resource.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// preview returns the first few ids for error messages, keeping them
// readable when a 300-id batch fails.
func preview(ids []string) []string {
	if len(ids) > 3 {
		return ids[:3]
	}
	return ids
}
