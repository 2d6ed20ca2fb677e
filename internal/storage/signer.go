package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	signAlgorithm = "AWS4-HMAC-SHA256"
	amzDateLayout = "20060102T150405Z"
)

// Signer computes AWS Signature Version 4 headers for S3-compatible
// requests without an SDK. It is pure: given the same clock, inputs map
// to the same signature, so it is unit-testable away from any network.
type Signer struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Service         string // "s3" unless overridden

	// Now is the clock; defaults to time.Now. Tests pin it.
	Now func() time.Time
}

func (s Signer) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Signer) service() string {
	if s.Service != "" {
		return s.Service
	}
	return "s3"
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// signingKey derives the per-day signing key: four nested HMAC-SHA256
// steps from the secret through date, region, service, "aws4_request".
func (s Signer) signingKey(dateStamp string) []byte {
	k := hmacSHA256([]byte("AWS4"+s.SecretAccessKey), []byte(dateStamp))
	k = hmacSHA256(k, []byte(s.Region))
	k = hmacSHA256(k, []byte(s.service()))
	return hmacSHA256(k, []byte("aws4_request"))
}

// Sign returns the headers to attach to the request: Authorization,
// x-amz-date and x-amz-content-sha256. The canonical header set is host,
// x-amz-content-sha256 and x-amz-date, plus content-type when the caller
// sends one.
func (s Signer) Sign(method string, u *url.URL, headers map[string]string, payload []byte) map[string]string {
	now := s.now()
	amzDate := now.Format(amzDateLayout)
	dateStamp := amzDate[:8]
	payloadHash := sha256Hex(payload)

	names := []string{"host", "x-amz-content-sha256", "x-amz-date"}
	contentType := headers["Content-Type"]
	if contentType != "" {
		names = append(names, "content-type")
	}
	sort.Strings(names)

	canonicalHeaders := make([]string, 0, len(names))
	for _, h := range names {
		switch h {
		case "host":
			canonicalHeaders = append(canonicalHeaders, "host:"+u.Host)
		case "x-amz-date":
			canonicalHeaders = append(canonicalHeaders, "x-amz-date:"+amzDate)
		case "x-amz-content-sha256":
			canonicalHeaders = append(canonicalHeaders, "x-amz-content-sha256:"+payloadHash)
		case "content-type":
			canonicalHeaders = append(canonicalHeaders, "content-type:"+contentType)
		}
	}
	signedHeaders := strings.Join(names, ";")

	canonicalRequest := strings.Join([]string{
		method,
		u.EscapedPath(),
		u.RawQuery,
		strings.Join(canonicalHeaders, "\n") + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := strings.Join([]string{dateStamp, s.Region, s.service(), "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signAlgorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(dateStamp), []byte(stringToSign)))

	return map[string]string{
		"Authorization": fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
			signAlgorithm, s.AccessKeyID, credentialScope, signedHeaders, signature),
		"x-amz-date":           amzDate,
		"x-amz-content-sha256": payloadHash,
	}
}

// Presign returns a copy of u carrying query-string authentication for a
// GET valid for expiresIn.
func (s Signer) Presign(u *url.URL, expiresIn time.Duration) *url.URL {
	now := s.now()
	amzDate := now.Format(amzDateLayout)
	dateStamp := amzDate[:8]
	credentialScope := strings.Join([]string{dateStamp, s.Region, s.service(), "aws4_request"}, "/")

	q := url.Values{}
	q.Set("X-Amz-Algorithm", signAlgorithm)
	q.Set("X-Amz-Credential", s.AccessKeyID+"/"+credentialScope)
	q.Set("X-Amz-Date", amzDate)
	q.Set("X-Amz-Expires", strconv.Itoa(int(expiresIn.Seconds())))
	q.Set("X-Amz-SignedHeaders", "host")

	canonicalRequest := strings.Join([]string{
		"GET",
		u.EscapedPath(),
		q.Encode(),
		"host:" + u.Host + "\n",
		"host",
		"UNSIGNED-PAYLOAD",
	}, "\n")

	stringToSign := strings.Join([]string{
		signAlgorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	q.Set("X-Amz-Signature", hex.EncodeToString(hmacSHA256(s.signingKey(dateStamp), []byte(stringToSign))))

	out := *u
	out.RawQuery = q.Encode()
	return &out
}
