// Package signer signs Para API requests with the AWS Signature Version 4 algorithm.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// Algorithm is the signing algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"
	// DefaultRegion is the region used in the credential scope.
	DefaultRegion = "us-east-1"
	// DefaultService is the service name used in the credential scope.
	DefaultService = "para"

	timeFormat = "20060102T150405Z"
)

// Signer computes V4 signature headers for a request.
type Signer struct {
	Region  string
	Service string
}

// New returns a Signer for the Para service in the default region.
func New() *Signer {
	return &Signer{
		Region:  DefaultRegion,
		Service: DefaultService,
	}
}

// SignedHeaders returns the x-amz-date, Host and Authorization headers for a
// request to u. bodyDigest is the hex SHA-256 of the request body.
func (s *Signer) SignedHeaders(
	accessKey, secretKey, method string,
	u *url.URL,
	bodyDigest string,
	t time.Time,
) map[string]string {
	datetime := t.UTC().Format(timeFormat)
	headers := map[string]string{
		"x-amz-date": datetime,
		"Host":       u.Host,
	}
	headers["Authorization"] = s.authorization(accessKey, secretKey, method, u, headers, datetime, bodyDigest)
	return headers
}

func (s *Signer) authorization(
	accessKey, secretKey, method string,
	u *url.URL,
	headers map[string]string,
	datetime, bodyDigest string,
) string {
	return strings.Join([]string{
		Algorithm + " Credential=" + accessKey + "/" + s.credentialScope(datetime),
		"SignedHeaders=" + signedHeaderNames(headers),
		"Signature=" + s.signature(secretKey, method, u, headers, datetime, bodyDigest),
	}, ", ")
}

func (s *Signer) credentialScope(datetime string) string {
	return strings.Join([]string{datetime[:8], s.Region, s.Service, "aws4_request"}, "/")
}

func (s *Signer) signature(
	secretKey, method string,
	u *url.URL,
	headers map[string]string,
	datetime, bodyDigest string,
) string {
	date := hmacSHA256([]byte("AWS4"+secretKey), datetime[:8])
	region := hmacSHA256(date, s.Region)
	service := hmacSHA256(region, s.Service)
	key := hmacSHA256(service, "aws4_request")
	return hex.EncodeToString(hmacSHA256(key, s.stringToSign(method, u, headers, datetime, bodyDigest)))
}

func (s *Signer) stringToSign(
	method string,
	u *url.URL,
	headers map[string]string,
	datetime, bodyDigest string,
) string {
	return strings.Join([]string{
		Algorithm,
		datetime,
		s.credentialScope(datetime),
		SHA256Hex([]byte(CanonicalRequest(method, u, headers, bodyDigest))),
	}, "\n")
}

// CanonicalRequest builds the canonical request string for u.
func CanonicalRequest(method string, u *url.URL, headers map[string]string, bodyDigest string) string {
	return strings.Join([]string{
		method,
		CanonicalPath(u.EscapedPath()),
		u.RawQuery,
		canonicalHeaders(headers) + "\n",
		signedHeaderNames(headers),
		bodyDigest,
	}, "\n")
}

// CanonicalPath encodes every segment of an already escaped path a second
// time. Empty segments are dropped and an empty path becomes "/".
func CanonicalPath(escapedPath string) string {
	var parts []string
	for _, part := range strings.Split(escapedPath, "/") {
		if part != "" {
			parts = append(parts, EncodeURIComponent(part))
		}
	}
	return "/" + strings.Join(parts, "/")
}

func sortedHeaderKeys(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if !strings.EqualFold(k, "authorization") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}

func canonicalHeaders(headers map[string]string) string {
	keys := sortedHeaderKeys(headers)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, strings.ToLower(k)+":"+headers[k])
	}
	return strings.Join(lines, "\n")
}

func signedHeaderNames(headers map[string]string) string {
	keys := sortedHeaderKeys(headers)
	for i, k := range keys {
		keys[i] = strings.ToLower(k)
	}
	return strings.Join(keys, ";")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// SHA256Hex returns the lower-case hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EncodeURIComponent percent-encodes s, leaving only ASCII letters, digits
// and "-_.~" untouched.
func EncodeURIComponent(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
