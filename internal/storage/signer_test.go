package storage

import (
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
)

func pinnedSigner() Signer {
	return Signer{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI",
		Region:          "auto",
		Now:             func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) },
	}
}

func TestSign_HeaderShape(t *testing.T) {
	s := pinnedSigner()
	u, _ := url.Parse("https://s3.example.com/bucket/cms/file.png")
	h := s.Sign("PUT", u, map[string]string{"Content-Type": "image/png"}, []byte("hello"))

	if h["x-amz-date"] != "20250314T092653Z" {
		t.Fatalf("x-amz-date = %q", h["x-amz-date"])
	}
	if len(h["x-amz-content-sha256"]) != 64 {
		t.Fatalf("payload hash length = %d", len(h["x-amz-content-sha256"]))
	}
	auth := h["Authorization"]
	re := regexp.MustCompile(`^AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20250314/auto/s3/aws4_request, SignedHeaders=([a-z0-9;-]+), Signature=[0-9a-f]{64}$`)
	m := re.FindStringSubmatch(auth)
	if m == nil {
		t.Fatalf("authorization did not match: %q", auth)
	}
	if m[1] != "content-type;host;x-amz-content-sha256;x-amz-date" {
		t.Fatalf("signed headers = %q", m[1])
	}
}

func TestSign_OmitsContentTypeWhenAbsent(t *testing.T) {
	s := pinnedSigner()
	u, _ := url.Parse("https://s3.example.com/bucket/cms/file.png")
	h := s.Sign("DELETE", u, nil, nil)
	if !strings.Contains(h["Authorization"], "SignedHeaders=host;x-amz-content-sha256;x-amz-date,") {
		t.Fatalf("unexpected signed headers: %q", h["Authorization"])
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := pinnedSigner()
	u, _ := url.Parse("https://s3.example.com/bucket/k")
	a := s.Sign("PUT", u, nil, []byte("data"))
	b := s.Sign("PUT", u, nil, []byte("data"))
	if a["Authorization"] != b["Authorization"] {
		t.Fatal("same inputs produced different signatures")
	}
	c := s.Sign("PUT", u, nil, []byte("other"))
	if a["Authorization"] == c["Authorization"] {
		t.Fatal("different payloads produced the same signature")
	}
}

func TestPresign_QueryAuth(t *testing.T) {
	s := pinnedSigner()
	u, _ := url.Parse("https://s3.example.com/bucket/cms/file.png")
	out := s.Presign(u, 15*time.Minute)

	q := out.Query()
	if q.Get("X-Amz-Algorithm") != "AWS4-HMAC-SHA256" {
		t.Fatalf("algorithm = %q", q.Get("X-Amz-Algorithm"))
	}
	if q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("expires = %q", q.Get("X-Amz-Expires"))
	}
	if q.Get("X-Amz-Credential") != "AKIDEXAMPLE/20250314/auto/s3/aws4_request" {
		t.Fatalf("credential = %q", q.Get("X-Amz-Credential"))
	}
	if len(q.Get("X-Amz-Signature")) != 64 {
		t.Fatalf("signature = %q", q.Get("X-Amz-Signature"))
	}
	if u.RawQuery != "" {
		t.Fatal("presign mutated the input url")
	}
}
