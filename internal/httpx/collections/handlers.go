// Package collections provides HTTP handlers for the content model:
// collection CRUD and schema field operations.
package collections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/app"
	"fiber-cms-pg/internal/content"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/store"
)

func notFoundOr(err error, entity string) error {
	if errors.Is(err, store.ErrNotFound) {
		return kit.NotFound(entity + " not found")
	}
	return kit.InternalError("database error", err.Error())
}

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 5*time.Second)
}

// ListHandler returns all collections ordered by name.
func ListHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		items, err := a.Store().ListCollections(ctx)
		if err != nil {
			return kit.InternalError("list collections failed", err.Error())
		}
		return kit.OK(c, items)
	}
}

// GetByIDHandler returns one collection.
func GetByIDHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		col, err := a.Store().CollectionByID(ctx, c.Params("id"))
		if err != nil {
			return notFoundOr(err, "Collection")
		}
		return kit.OK(c, col)
	}
}

// GetBySlugHandler resolves a collection by its URL slug.
func GetBySlugHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		col, err := a.Store().CollectionBySlug(ctx, c.Params("slug"))
		if err != nil {
			return notFoundOr(err, "Collection")
		}
		return kit.OK(c, col)
	}
}

// CreateRequest creates a collection with an empty schema.
type CreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CreateHandler derives the slug from the name and inserts the
// collection with no fields.
func CreateHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.Name == "" || len(req.Name) > 100 {
			return kit.BadRequest("name must be between 1 and 100 characters", nil)
		}
		slug := content.Slugify(req.Name)
		if slug == "" {
			return kit.BadRequest("name must contain at least one alphanumeric character", nil)
		}

		ctx, cancel := reqCtx(c)
		defer cancel()

		col := &store.Collection{
			Name:        req.Name,
			Slug:        slug,
			Description: req.Description,
			Schema:      content.Schema{Fields: []content.Field{}},
		}
		if ac := mw.Auth(c); ac != nil && ac.User != nil {
			col.CreatedByID = &ac.User.ID
		}
		if err := a.Store().CreateCollection(ctx, col); err != nil {
			if store.IsUniqueViolation(err) {
				return kit.BadRequest(fmt.Sprintf("A collection with the slug %q already exists", slug), nil)
			}
			return kit.InternalError("create collection failed", err.Error())
		}
		return kit.Created(c, col)
	}
}

// UpdateRequest patches collection metadata. A rename re-derives the
// slug.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func UpdateHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}

		ctx, cancel := reqCtx(c)
		defer cancel()

		upd := store.CollectionUpdate{Description: req.Description}
		if req.Name != nil {
			if *req.Name == "" || len(*req.Name) > 100 {
				return kit.BadRequest("name must be between 1 and 100 characters", nil)
			}
			slug := content.Slugify(*req.Name)
			existing, err := a.Store().CollectionBySlug(ctx, slug)
			if err == nil && existing.ID != c.Params("id") {
				return kit.BadRequest(fmt.Sprintf("A collection with the slug %q already exists", slug), nil)
			}
			upd.Name = req.Name
			upd.Slug = &slug
		}

		col, err := a.Store().UpdateCollection(ctx, c.Params("id"), upd)
		if err != nil {
			return notFoundOr(err, "Collection")
		}
		return kit.OK(c, col)
	}
}

// DeleteHandler removes a collection; its entries cascade away.
func DeleteHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		if _, err := a.Store().DeleteCollection(ctx, c.Params("id")); err != nil {
			return notFoundOr(err, "Collection")
		}
		return kit.OK(c, fiber.Map{"success": true})
	}
}

// applySchemaChange loads the collection, runs the mutation on its
// schema and stores the result. All field operations funnel through
// here.
func applySchemaChange(a *app.App, c *fiber.Ctx, id string, change func(content.Schema) (content.Schema, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	col, err := a.Store().CollectionByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Collection")
	}
	next, err := change(col.Schema)
	if err != nil {
		return kit.BadRequest(err.Error(), nil)
	}
	updated, err := a.Store().UpdateCollection(ctx, id, store.CollectionUpdate{Schema: &next})
	if err != nil {
		return notFoundOr(err, "Collection")
	}
	return kit.OK(c, updated)
}

// UpdateSchemaHandler replaces the whole field list atomically.
func UpdateSchemaHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Schema content.Schema `json:"schema"`
		}
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		return applySchemaChange(a, c, c.Params("id"), func(content.Schema) (content.Schema, error) {
			return content.ReplaceSchema(req.Schema)
		})
	}
}

// AddFieldHandler appends a new field to the schema.
func AddFieldHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Field content.Field `json:"field"`
		}
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		return applySchemaChange(a, c, c.Params("id"), func(s content.Schema) (content.Schema, error) {
			return content.AddField(s, req.Field)
		})
	}
}

// FieldPatch is the wire form of a partial field update.
type FieldPatch struct {
	Name          *string            `json:"name"`
	Key           *string            `json:"key"`
	Type          *content.FieldType `json:"type"`
	Required      *bool              `json:"required"`
	Description   *string            `json:"description"`
	DefaultValue  any                `json:"defaultValue"`
	ArrayItemType *content.FieldType `json:"arrayItemType"`
}

// UpdateFieldHandler patches one field by id.
func UpdateFieldHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw map[string]any
		if err := c.BodyParser(&raw); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		var req FieldPatch
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		upd := content.FieldUpdate{
			Name:          req.Name,
			Key:           req.Key,
			Type:          req.Type,
			Required:      req.Required,
			Description:   req.Description,
			ArrayItemType: req.ArrayItemType,
		}
		// Presence matters: defaultValue may legitimately be null.
		if _, ok := raw["defaultValue"]; ok {
			upd.DefaultValue = req.DefaultValue
			upd.HasDefaultValue = true
		}
		return applySchemaChange(a, c, c.Params("id"), func(s content.Schema) (content.Schema, error) {
			return content.UpdateField(s, c.Params("fieldId"), upd)
		})
	}
}

// RemoveFieldHandler drops a field; stored entry data under its key
// stays put and is simply no longer validated.
func RemoveFieldHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return applySchemaChange(a, c, c.Params("id"), func(s content.Schema) (content.Schema, error) {
			return content.RemoveField(s, c.Params("fieldId")), nil
		})
	}
}

// ReorderFieldsHandler rewrites the field order from an id list.
func ReorderFieldsHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			FieldIDs []string `json:"fieldIds"`
		}
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		return applySchemaChange(a, c, c.Params("id"), func(s content.Schema) (content.Schema, error) {
			return content.ReorderFields(s, req.FieldIDs), nil
		})
	}
}
