// Package entries provides HTTP handlers for content records: CRUD,
// the publish lifecycle and bulk deletion. Published entries are
// mirrored into the search index and lifecycle events go to the
// message broker when those are configured.
package entries

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/app"
	"fiber-cms-pg/internal/content"
	"fiber-cms-pg/internal/esx"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/mqx"
	"fiber-cms-pg/internal/store"
)

var entriesLogger = logx.GetScope("entries")

func notFoundOr(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return kit.NotFound(entity + " not found")
	}
	return kit.InternalError("database error", err.Error())
}

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}

func validationError(res content.Result) error {
	return kit.BadRequest("Validation failed: "+strings.Join(res.Errors, ", "), res.Errors)
}

// indexPublished mirrors a published entry into the search index;
// failures are logged, never surfaced.
func indexPublished(ctx context.Context, a *app.App, e *store.Entry) {
	if a.ES() == nil {
		return
	}
	col, err := a.Store().CollectionByID(ctx, e.CollectionID)
	name := ""
	if err == nil {
		name = col.Name
	}
	doc := esx.EntryDoc{
		ID:           e.ID,
		CollectionID: e.CollectionID,
		Collection:   name,
		Text:         esx.FlattenData(e.Data),
		Status:       e.Status,
	}
	if e.PublishedAt != nil {
		doc.PublishedAt = *e.PublishedAt
	}
	if err := esx.IndexEntry(ctx, a.ES(), a.Cfg.ES.Index, doc); err != nil {
		entriesLogger.Sugar().Warnf("index entry %s: %v", e.ID, err)
	}
}

func dropFromIndex(ctx context.Context, a *app.App, id string) {
	if a.ES() == nil {
		return
	}
	if err := esx.DeleteEntry(ctx, a.ES(), a.Cfg.ES.Index, id); err != nil {
		entriesLogger.Sugar().Warnf("unindex entry %s: %v", id, err)
	}
}

// ListHandler pages entries of one collection with optional status
// filter and createdAt/updatedAt ordering. Total comes from a separate
// count query.
func ListHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collectionID := c.Query("collectionId")
		if collectionID == "" {
			return kit.BadRequest("collectionId is required", nil)
		}
		status := c.Query("status")
		if status != "" && status != store.StatusDraft && status != store.StatusPublished && status != store.StatusArchived {
			return kit.BadRequest("status must be draft, published or archived", nil)
		}
		orderBy := c.Query("orderBy", "createdAt")
		if orderBy != "createdAt" && orderBy != "updatedAt" {
			return kit.BadRequest("orderBy must be createdAt or updatedAt", nil)
		}
		order := c.Query("orderDir", "desc")
		if order != "asc" && order != "desc" {
			return kit.BadRequest("orderDir must be asc or desc", nil)
		}
		pg := kit.ParsePaging(c)

		ctx, cancel := reqCtx(c)
		defer cancel()
		items, total, err := a.Store().ListEntries(ctx, store.EntryListOpts{
			CollectionID: collectionID,
			Status:       status,
			OrderBy:      orderBy,
			Order:        order,
			Limit:        pg.Limit,
			Offset:       pg.Offset,
		})
		if err != nil {
			return kit.InternalError("list entries failed", err.Error())
		}
		return kit.List(c, items, kit.PageMeta{
			Limit:   pg.Limit,
			Offset:  pg.Offset,
			Count:   len(items),
			Total:   &total,
			HasMore: pg.Offset+len(items) < total,
		})
	}
}

func GetByIDHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		e, err := a.Store().EntryByID(ctx, c.Params("id"))
		if err != nil {
			return notFoundOr(err, "Entry")
		}
		return kit.OK(c, e)
	}
}

// CreateRequest inserts a new entry into a collection.
type CreateRequest struct {
	CollectionID string         `json:"collectionId"`
	Data         map[string]any `json:"data"`
	Status       string         `json:"status"`
}

// CreateHandler applies schema defaults, validates and inserts. A
// validation failure aborts with the aggregated message and writes
// nothing.
func CreateHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.CollectionID == "" {
			return kit.BadRequest("collectionId is required", nil)
		}
		if req.Status == "" {
			req.Status = store.StatusDraft
		}
		if req.Status != store.StatusDraft && req.Status != store.StatusPublished {
			return kit.BadRequest("status must be draft or published", nil)
		}
		if req.Data == nil {
			req.Data = map[string]any{}
		}

		ctx, cancel := reqCtx(c)
		defer cancel()

		col, err := a.Store().CollectionByID(ctx, req.CollectionID)
		if err != nil {
			return notFoundOr(err, "Collection")
		}

		data := content.ApplyDefaults(req.Data, col.Schema)
		if res := content.ValidateEntryData(data, col.Schema); !res.Valid {
			return validationError(res)
		}

		e := &store.Entry{
			CollectionID: req.CollectionID,
			Data:         data,
			Status:       req.Status,
		}
		if req.Status == store.StatusPublished {
			now := time.Now().UTC()
			e.PublishedAt = &now
		}
		if ac := mw.Auth(c); ac != nil && ac.User != nil {
			e.CreatedByID = &ac.User.ID
			e.UpdatedByID = &ac.User.ID
		}
		if err := a.Store().CreateEntry(ctx, e); err != nil {
			return kit.InternalError("create entry failed", err.Error())
		}

		mqx.Emit(ctx, a.MQ(), "entry.created", e)
		if e.Status == store.StatusPublished {
			indexPublished(ctx, a, e)
			mqx.Emit(ctx, a.MQ(), "entry.published", e)
		}
		return kit.Created(c, e)
	}
}

// UpdateRequest patches entry data and/or status.
type UpdateRequest struct {
	Data   map[string]any `json:"data"`
	Status *string        `json:"status"`
}

// UpdateHandler merges submitted data over the stored document, applies
// defaults and validates. publishedAt is stamped only when the status
// transitions into published here; an already-published entry keeps its
// original timestamp.
func UpdateHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}

		ctx, cancel := reqCtx(c)
		defer cancel()

		e, err := a.Store().EntryByID(ctx, c.Params("id"))
		if err != nil {
			return notFoundOr(err, "Entry")
		}
		col, err := a.Store().CollectionByID(ctx, e.CollectionID)
		if err != nil {
			return notFoundOr(err, "Collection")
		}

		upd := store.EntryUpdate{}
		if req.Data != nil {
			merged := make(map[string]any, len(e.Data)+len(req.Data))
			for k, v := range e.Data {
				merged[k] = v
			}
			for k, v := range req.Data {
				merged[k] = v
			}
			merged = content.ApplyDefaults(merged, col.Schema)
			if res := content.ValidateEntryData(merged, col.Schema); !res.Valid {
				return validationError(res)
			}
			upd.Data = merged
		}
		wasPublished := e.Status == store.StatusPublished
		if req.Status != nil {
			st := *req.Status
			if st != store.StatusDraft && st != store.StatusPublished && st != store.StatusArchived {
				return kit.BadRequest("status must be draft, published or archived", nil)
			}
			upd.Status = &st
			if st == store.StatusPublished && !wasPublished {
				now := time.Now().UTC()
				upd.PublishedAt = &now
				upd.SetPublishedAt = true
			}
		}
		if ac := mw.Auth(c); ac != nil && ac.User != nil {
			upd.UpdatedByID = &ac.User.ID
		}

		updated, err := a.Store().UpdateEntry(ctx, c.Params("id"), upd)
		if err != nil {
			return notFoundOr(err, "Entry")
		}
		if updated.Status == store.StatusPublished {
			indexPublished(ctx, a, updated)
			if !wasPublished {
				mqx.Emit(ctx, a.MQ(), "entry.published", updated)
			}
		} else if wasPublished {
			dropFromIndex(ctx, a, updated.ID)
		}
		return kit.OK(c, updated)
	}
}

func DeleteHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		e, err := a.Store().DeleteEntry(ctx, c.Params("id"))
		if err != nil {
			return notFoundOr(err, "Entry")
		}
		dropFromIndex(ctx, a, e.ID)
		return kit.OK(c, fiber.Map{"success": true})
	}
}

// setStatus implements publish, unpublish and archive. Publish always
// restamps publishedAt, matching an editor's expectation that "publish"
// means "now".
func setStatus(a *app.App, c *fiber.Ctx, status string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	upd := store.EntryUpdate{Status: &status}
	if status == store.StatusPublished {
		now := time.Now().UTC()
		upd.PublishedAt = &now
		upd.SetPublishedAt = true
	}
	if ac := mw.Auth(c); ac != nil && ac.User != nil {
		upd.UpdatedByID = &ac.User.ID
	}
	e, err := a.Store().UpdateEntry(ctx, c.Params("id"), upd)
	if err != nil {
		return notFoundOr(err, "Entry")
	}

	switch status {
	case store.StatusPublished:
		indexPublished(ctx, a, e)
		mqx.Emit(ctx, a.MQ(), "entry.published", e)
	case store.StatusArchived:
		dropFromIndex(ctx, a, e.ID)
		mqx.Emit(ctx, a.MQ(), "entry.archived", e)
	default:
		dropFromIndex(ctx, a, e.ID)
	}
	return kit.OK(c, e)
}

func PublishHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error { return setStatus(a, c, store.StatusPublished) }
}

func UnpublishHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error { return setStatus(a, c, store.StatusDraft) }
}

func ArchiveHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error { return setStatus(a, c, store.StatusArchived) }
}

// BulkDeleteHandler removes entries by id, tolerating unknown ids, and
// reports how many rows were actually deleted.
func BulkDeleteHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}

		ctx, cancel := reqCtx(c)
		defer cancel()
		n, err := a.Store().BulkDeleteEntries(ctx, req.IDs)
		if err != nil {
			return kit.InternalError("bulk delete failed", err.Error())
		}
		for _, id := range req.IDs {
			dropFromIndex(ctx, a, id)
		}
		return kit.OK(c, fiber.Map{"deletedCount": n})
	}
}

// SearchHandler queries the search index; without Elasticsearch it
// returns an empty result set rather than failing.
func SearchHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return kit.BadRequest("q is required", nil)
		}
		pg := kit.ParsePaging(c)

		ctx, cancel := reqCtx(c)
		defer cancel()
		out, err := esx.SearchEntries(ctx, a.ES(), a.Cfg.ES.Index, q, pg.Offset, pg.Limit)
		if err != nil {
			return kit.InternalError("search failed", err.Error())
		}
		return kit.OK(c, out)
	}
}
