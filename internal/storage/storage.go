// Package storage implements the S3-compatible object client the CMS
// uploads media through. Requests are signed locally (SigV4); no SDK.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"fiber-cms-pg/internal/logx"
)

var storageLogger = logx.GetScope("storage")

// URL construction styles for S3-compatible endpoints.
const (
	StylePath          = "path"           // {endpoint}/{bucket}/{path}
	StyleVirtualHosted = "virtual-hosted" // {scheme}://{bucket}.{endpointHost}/{path}
)

// Config carries the construction-time storage settings.
type Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	PublicURL       string // when set, public URLs use this prefix regardless of style
	PathPrefix      string
	URLStyle        string // StylePath (default) or StyleVirtualHosted
}

// Client talks to one bucket. Upload, Delete and Fetch are not retried
// internally; retry policy belongs to the caller.
type Client struct {
	cfg      Config
	endpoint *url.URL
	signer   Signer
	http     *http.Client
}

// UploadOptions control filename, content type and bucket folder for an
// upload.
type UploadOptions struct {
	Filename    string
	ContentType string
	Folder      string
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL        string `json:"url"`
	BucketPath string `json:"bucketPath"`
	Filename   string `json:"filename"`
}

// New validates the config and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: endpoint and bucket are required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage: access key id and secret are required")
	}
	ep, err := url.Parse(cfg.Endpoint)
	if err != nil || ep.Scheme == "" || ep.Host == "" {
		return nil, fmt.Errorf("storage: invalid endpoint %q", cfg.Endpoint)
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}
	if cfg.URLStyle == "" {
		cfg.URLStyle = StylePath
	}
	if cfg.URLStyle != StylePath && cfg.URLStyle != StyleVirtualHosted {
		return nil, fmt.Errorf("storage: unknown url style %q", cfg.URLStyle)
	}
	return &Client{
		cfg:      cfg,
		endpoint: ep,
		signer:   Signer{AccessKeyID: cfg.AccessKeyID, SecretAccessKey: cfg.SecretAccessKey, Region: cfg.Region},
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// GeneratePath builds the bucket key for a new object:
// [prefix, folder, "<epochMillis>-<rand6>-<sanitized filename>"] joined
// with "/". Timestamp plus random suffix keeps keys collision-resistant
// without any coordination.
func (c *Client) GeneratePath(filename, folder string) string {
	safe := unsafeFilenameRe.ReplaceAllString(filename, "_")
	name := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + randBase36(6) + "-" + safe
	parts := make([]string, 0, 3)
	if c.cfg.PathPrefix != "" {
		parts = append(parts, c.cfg.PathPrefix)
	}
	if folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, name)
	return strings.Join(parts, "/")
}

func randBase36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// objectURL builds the request URL for a bucket path per the configured
// style.
func (c *Client) objectURL(bucketPath string) *url.URL {
	if c.cfg.URLStyle == StyleVirtualHosted {
		u := &url.URL{Scheme: c.endpoint.Scheme, Host: c.cfg.Bucket + "." + c.endpoint.Host}
		u.Path = "/" + bucketPath
		return u
	}
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + c.cfg.Bucket + "/" + bucketPath
	return &u
}

// PublicURL returns the public URL for a bucket path. A configured
// PublicURL prefix wins over either style.
func (c *Client) PublicURL(bucketPath string) string {
	if c.cfg.PublicURL != "" {
		return strings.TrimSuffix(c.cfg.PublicURL, "/") + "/" + bucketPath
	}
	return c.objectURL(bucketPath).String()
}

// SignedURL returns a presigned GET URL valid for expiresIn (default 1h).
func (c *Client) SignedURL(bucketPath string, expiresIn time.Duration) string {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	return c.signer.Presign(c.objectURL(bucketPath), expiresIn).String()
}

// Upload stores data under a generated bucket path and returns the
// object description. Non-2xx responses fail with status and body.
func (c *Client) Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "file"
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	bucketPath := c.GeneratePath(filename, opts.Folder)
	u := c.objectURL(bucketPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	for k, v := range c.signer.Sign(http.MethodPut, u, map[string]string{"Content-Type": contentType}, data) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload failed: %s%s", resp.Status, respBodySuffix(resp.Body))
	}

	storageLogger.Debug("object stored",
		zap.String("bucket", c.cfg.Bucket),
		zap.String("path", bucketPath),
		zap.Int("size", len(data)))
	return &UploadResult{URL: c.PublicURL(bucketPath), BucketPath: bucketPath, Filename: filename}, nil
}

// Delete removes an object. A 404 counts as success so deletes are
// idempotent.
func (c *Client) Delete(ctx context.Context, bucketPath string) error {
	u := c.objectURL(bucketPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return err
	}
	for k, v := range c.signer.Sign(http.MethodDelete, u, nil, nil) {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete failed: %s%s", resp.Status, respBodySuffix(resp.Body))
	}
	return nil
}

// Fetch retrieves an object. The caller owns the response body.
func (c *Client) Fetch(ctx context.Context, bucketPath string) (*http.Response, error) {
	u := c.objectURL(bucketPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.signer.Sign(http.MethodGet, u, nil, nil) {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	return resp, nil
}

func respBodySuffix(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	return ": " + string(bytes.TrimSpace(body))
}
