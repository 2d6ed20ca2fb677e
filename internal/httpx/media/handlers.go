// Package media handles uploaded assets: the base64 upload endpoint,
// the same-origin proxy that streams objects from bucket storage,
// metadata CRUD and presigned download URLs.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/app"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/mqx"
	"fiber-cms-pg/internal/storage"
	"fiber-cms-pg/internal/store"
)

var mediaLogger = logx.GetScope("media")

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 15*time.Second)
}

// ListHandler pages media rows, optionally filtered by MIME type. The
// total reflects the filter, not just the returned page.
func ListHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := kit.ParsePaging(c)
		ctx, cancel := reqCtx(c)
		defer cancel()
		items, total, err := a.Store().ListMedia(ctx, store.MediaListOpts{
			MimeType: c.Query("mimeType"),
			Limit:    pg.Limit,
			Offset:   pg.Offset,
		})
		if err != nil {
			return kit.InternalError("list media failed", err.Error())
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

// GetByIDHandler returns a null payload for unknown ids so read-only
// consumers can probe without handling errors.
func GetByIDHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		m, err := a.Store().MediaByID(ctx, c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.OK(c, nil)
			}
			return kit.InternalError("database error", err.Error())
		}
		return kit.OK(c, m)
	}
}

// UpdateRequest patches descriptive metadata on a media row.
type UpdateRequest struct {
	Alt      *string        `json:"alt"`
	Caption  *string        `json:"caption"`
	Metadata map[string]any `json:"metadata"`
}

func UpdateHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		m, err := a.Store().UpdateMedia(ctx, c.Params("id"), store.MediaUpdate{
			Alt:      req.Alt,
			Caption:  req.Caption,
			Metadata: req.Metadata,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("Media not found")
			}
			return kit.InternalError("update media failed", err.Error())
		}
		return kit.OK(c, m)
	}
}

// DeleteHandler removes the object from bucket storage best-effort,
// then deletes the row. A bucket failure is logged but never blocks
// the database delete.
func DeleteHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := reqCtx(c)
		defer cancel()
		m, err := a.Store().MediaByID(ctx, c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("Media not found")
			}
			return kit.InternalError("database error", err.Error())
		}
		if a.Storage() != nil && m.BucketPath != "" {
			if err := a.Storage().Delete(ctx, m.BucketPath); err != nil {
				mediaLogger.Sugar().Warnf("delete object %s: %v", m.BucketPath, err)
			}
		}
		if _, err := a.Store().DeleteMedia(ctx, m.ID); err != nil {
			return kit.InternalError("delete media failed", err.Error())
		}
		mqx.Emit(ctx, a.MQ(), "media.deleted", m)
		return kit.OK(c, fiber.Map{"success": true})
	}
}

// SignedURLHandler issues a time-limited download URL straight to the
// bucket, bypassing the proxy.
func SignedURLHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.Storage() == nil {
			return kit.BadRequest("storage is not configured", nil)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		m, err := a.Store().MediaByID(ctx, c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return kit.NotFound("Media not found")
			}
			return kit.InternalError("database error", err.Error())
		}
		expires := c.QueryInt("expiresIn", 3600)
		if expires <= 0 {
			expires = 3600
		}
		u := a.Storage().SignedURL(m.BucketPath, time.Duration(expires)*time.Second)
		return kit.OK(c, fiber.Map{"url": u, "expiresIn": expires})
	}
}

// UploadRequest carries a base64-encoded file body.
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

// UploadHandler decodes the payload, stores the object and records a
// media row whose URL points at the same-origin proxy so the admin UI
// never needs bucket credentials.
func UploadHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.Storage() == nil {
			return kit.BadRequest("storage is not configured", nil)
		}
		var req UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.Filename == "" {
			return kit.BadRequest("filename is required", nil)
		}
		if req.Data == "" {
			return kit.BadRequest("data is required", nil)
		}
		raw, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return kit.BadRequest("data must be base64 encoded", nil)
		}
		if req.ContentType == "" {
			req.ContentType = "application/octet-stream"
		}

		ctx, cancel := reqCtx(c)
		defer cancel()
		res, err := a.Storage().Upload(ctx, raw, storage.UploadOptions{
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Folder:      "uploads",
		})
		if err != nil {
			return kit.InternalError("upload failed", err.Error())
		}

		m := &store.Media{
			Filename:         path.Base(res.BucketPath),
			OriginalFilename: req.Filename,
			MimeType:         req.ContentType,
			Size:             int64(len(raw)),
			URL:              proxyURL(a.Cfg.CMS.BasePath, res.BucketPath),
			BucketPath:       res.BucketPath,
		}
		if ac := mw.Auth(c); ac != nil && ac.User != nil {
			m.UploadedByID = &ac.User.ID
		}
		if err := a.Store().CreateMedia(ctx, m); err != nil {
			return kit.InternalError("record media failed", err.Error())
		}
		mqx.Emit(ctx, a.MQ(), "media.uploaded", m)
		return kit.Created(c, fiber.Map{
			"url":        m.URL,
			"bucketPath": m.BucketPath,
			"filename":   m.Filename,
			"media":      m,
		})
	}
}

func proxyURL(basePath, bucketPath string) string {
	base := strings.TrimRight(basePath, "/")
	return base + "/api/media/" + bucketPath
}

// ProxyHandler streams an object from bucket storage through the
// server, with long-lived caching since bucket paths are unique per
// upload.
func ProxyHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.Storage() == nil {
			return kit.NotFound("Media not found")
		}
		bucketPath := strings.TrimPrefix(c.Params("+"), "/")
		if bucketPath == "" {
			return kit.NotFound("Media not found")
		}
		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()

		resp, err := a.Storage().Fetch(ctx, bucketPath)
		if err != nil {
			return kit.InternalError("fetch object failed", err.Error())
		}
		defer resp.Body.Close()
		if resp.StatusCode == fiber.StatusNotFound {
			return kit.NotFound("Media not found")
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return kit.InternalError("fetch object failed", resp.Status)
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			c.Set(fiber.HeaderContentType, ct)
		}
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return kit.InternalError("read object failed", err.Error())
		}
		return c.Send(body)
	}
}
