// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const signingAlgorithm = "AWS4-HMAC-SHA256"

// amzDateFormat is the timestamp format SigV4 embeds in X-Amz-Date and
// the string to sign. The credential scope uses the date portion only.
const (
	amzDateFormat   = "20060102T150405Z"
	scopeDateFormat = "20060102"
)

// signRequest computes the Signature Version 4 signature for request
// and sets the X-Amz-Date, X-Amz-Security-Token (when the credentials
// are temporary), and Authorization headers. payloadHash is the
// lowercase hex SHA-256 of the exact request body bytes.
//
// The signature covers the content-type, host, and x-amz-date headers
// (plus the security token when present). Changing any of those after
// signing invalidates the request.
func signRequest(request *http.Request, payloadHash string, credentials Credentials, region, service string, now time.Time) {
	amzDate := now.UTC().Format(amzDateFormat)
	scopeDate := now.UTC().Format(scopeDateFormat)

	request.Header.Set("X-Amz-Date", amzDate)
	if credentials.SessionToken != "" {
		request.Header.Set("X-Amz-Security-Token", credentials.SessionToken)
	}

	host := request.Host
	if host == "" {
		host = request.URL.Host
	}

	// Headers included in the signature: lowercase names, values
	// trimmed with internal runs of spaces collapsed, sorted by name.
	signedHeaders := [][2]string{
		{"content-type", request.Header.Get("Content-Type")},
		{"host", host},
		{"x-amz-date", amzDate},
	}
	if credentials.SessionToken != "" {
		signedHeaders = append(signedHeaders, [2]string{"x-amz-security-token", credentials.SessionToken})
	}
	sort.Slice(signedHeaders, func(i, j int) bool {
		return signedHeaders[i][0] < signedHeaders[j][0]
	})

	var canonicalHeaders strings.Builder
	headerNames := make([]string, 0, len(signedHeaders))
	for _, header := range signedHeaders {
		canonicalHeaders.WriteString(header[0])
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(strings.Join(strings.Fields(header[1]), " "))
		canonicalHeaders.WriteByte('\n')
		headerNames = append(headerNames, header[0])
	}
	signedHeaderNames := strings.Join(headerNames, ";")

	canonicalPath := request.URL.EscapedPath()
	if canonicalPath == "" {
		canonicalPath = "/"
	}

	// The headers block carries its own trailing newline, so the join
	// produces the blank line that separates it from the header name
	// list.
	canonicalRequest := strings.Join([]string{
		request.Method,
		canonicalPath,
		canonicalQueryString(request.URL.Query()),
		canonicalHeaders.String(),
		signedHeaderNames,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{scopeDate, region, service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(credentials.SecretAccessKey, scopeDate, region, service)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	request.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, credentials.AccessKeyID, scope, signedHeaderNames, signature))
}

// canonicalQueryString builds the SigV4 canonical query string:
// parameters sorted by name (then by value for repeated names), each
// name and value percent-encoded per RFC 3986.
func canonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var encoded strings.Builder
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for _, value := range values {
			if encoded.Len() > 0 {
				encoded.WriteByte('&')
			}
			encoded.WriteString(uriEscape(name))
			encoded.WriteByte('=')
			encoded.WriteString(uriEscape(value))
		}
	}
	return encoded.String()
}

// uriEscape percent-encodes per RFC 3986: unreserved characters
// (letters, digits, '-', '_', '.', '~') pass through, everything else
// becomes %XX with uppercase hex. url.QueryEscape is not usable here
// because it encodes spaces as '+'.
func uriEscape(s string) string {
	var escaped strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			escaped.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			escaped.WriteByte(c)
		default:
			escaped.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return escaped.String()
}

// signingKey derives the SigV4 signing key by chaining HMAC-SHA256
// over the scope components.
func signingKey(secretKey, scopeDate, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), scopeDate)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
