package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.AccessKeyID == "" {
		cfg.AccessKeyID = "key"
		cfg.SecretAccessKey = "secret"
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := New(Config{Endpoint: "https://s3.example.com", Bucket: "b"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if _, err := New(Config{Endpoint: "://bad", Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}); err == nil {
		t.Fatal("expected error for bad endpoint")
	}
	if _, err := New(Config{Endpoint: "https://s3.example.com", Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s", URLStyle: "dns"}); err == nil {
		t.Fatal("expected error for unknown url style")
	}
}

func TestPublicURL_Styles(t *testing.T) {
	path := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media"})
	if got := path.PublicURL("cms/a.png"); got != "https://s3.example.com/media/cms/a.png" {
		t.Fatalf("path style = %q", got)
	}

	vh := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media", URLStyle: StyleVirtualHosted})
	if got := vh.PublicURL("cms/a.png"); got != "https://media.s3.example.com/cms/a.png" {
		t.Fatalf("virtual-hosted style = %q", got)
	}

	pub := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media", PublicURL: "https://cdn.example.com/"})
	if got := pub.PublicURL("cms/a.png"); got != "https://cdn.example.com/cms/a.png" {
		t.Fatalf("public url override = %q", got)
	}
}

func TestGeneratePath(t *testing.T) {
	c := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media", PathPrefix: "cms"})
	got := c.GeneratePath("my file (1).png", "uploads")
	re := regexp.MustCompile(`^cms/uploads/\d+-[0-9a-z]{6}-my_file__1_\.png$`)
	if !re.MatchString(got) {
		t.Fatalf("path = %q", got)
	}

	noPrefix := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media"})
	if strings.Contains(noPrefix.GeneratePath("a.png", ""), "//") {
		t.Fatal("empty segments must not appear in the path")
	}
}

func TestUpload_SignsAndReturnsResult(t *testing.T) {
	var gotAuth, gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, Config{Endpoint: srv.URL, Bucket: "media", PathPrefix: "cms"})
	res, err := c.Upload(context.Background(), []byte("png-bytes"), UploadOptions{Filename: "a.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/media/cms/") {
		t.Fatalf("request path = %q", gotPath)
	}
	if gotType != "image/png" {
		t.Fatalf("content type = %q", gotType)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=") {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(res.BucketPath, "cms/") || res.Filename != "a.png" {
		t.Fatalf("result = %+v", res)
	}
	if res.URL != srv.URL+"/media/"+res.BucketPath {
		t.Fatalf("url = %q", res.URL)
	}
}

func TestUpload_FailureCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer srv.Close()

	c := testClient(t, Config{Endpoint: srv.URL, Bucket: "media"})
	_, err := c.Upload(context.Background(), []byte("x"), UploadOptions{Filename: "a.png"})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "SignatureDoesNotMatch") {
		t.Fatalf("error = %v", err)
	}
}

func TestDelete_TreatsNotFoundAsSuccess(t *testing.T) {
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := testClient(t, Config{Endpoint: srv.URL, Bucket: "media"})
	for _, s := range []int{http.StatusNoContent, http.StatusNotFound} {
		status = s
		if err := c.Delete(context.Background(), "cms/a.png"); err != nil {
			t.Fatalf("status %d: %v", s, err)
		}
	}
	status = http.StatusInternalServerError
	if err := c.Delete(context.Background(), "cms/a.png"); err == nil {
		t.Fatal("expected delete error on 500")
	}
}

func TestFetch_ReturnsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	c := testClient(t, Config{Endpoint: srv.URL, Bucket: "media"})
	resp, err := c.Fetch(context.Background(), "cms/a.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestSignedURL_DefaultsExpiry(t *testing.T) {
	c := testClient(t, Config{Endpoint: "https://s3.example.com", Bucket: "media"})
	u := c.SignedURL("cms/a.png", 0)
	if !strings.Contains(u, "X-Amz-Expires=3600") {
		t.Fatalf("signed url = %q", u)
	}
	u = c.SignedURL("cms/a.png", 2*time.Minute)
	if !strings.Contains(u, "X-Amz-Expires=120") {
		t.Fatalf("signed url = %q", u)
	}
}
