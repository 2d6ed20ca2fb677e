package store

import (
	"time"

	"fiber-cms-pg/internal/content"
)

// Roles recognized by the CMS. Superadmin is a singleton enforced by a
// partial unique index.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
)

// Entry lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         *string   `json:"image,omitempty"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress *string   `json:"ipAddress,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Account struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	AccountID  string    `json:"accountId"`
	ProviderID string    `json:"providerId"`
	Password   *string   `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Collection struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description *string        `json:"description,omitempty"`
	Schema      content.Schema `json:"schema"`
	CreatedByID *string        `json:"createdById,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type Entry struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collectionId"`
	Data         map[string]any `json:"data"`
	Status       string         `json:"status"`
	PublishedAt  *time.Time     `json:"publishedAt,omitempty"`
	CreatedByID  *string        `json:"createdById,omitempty"`
	UpdatedByID  *string        `json:"updatedById,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type Media struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"originalFilename"`
	MimeType         string         `json:"mimeType"`
	Size             int64          `json:"size"`
	URL              string         `json:"url"`
	BucketPath       string         `json:"bucketPath"`
	Alt              *string        `json:"alt,omitempty"`
	Caption          *string        `json:"caption,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	UploadedByID     *string        `json:"uploadedById,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
