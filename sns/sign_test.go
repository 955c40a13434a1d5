// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// emptyPayloadHash is the SHA-256 of zero bytes.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// TestSignRequestKnownAnswer checks the signer against the worked
// example in the AWS General Reference (the ListUsers GET signed with
// the documentation's example credentials). Every intermediate value
// of that example is published, so a passing signature means the
// canonical request, string to sign, and key derivation all match.
func TestSignRequestKnownAnswer(t *testing.T) {
	request, err := http.NewRequest(http.MethodGet, "https://iam.amazonaws.com/?Action=ListUsers&Version=2010-05-08", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	credentials := Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
	signedAt := time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)

	signRequest(request, emptyPayloadHash, credentials, "us-east-1", "iam", signedAt)

	if got := request.Header.Get("X-Amz-Date"); got != "20150830T123600Z" {
		t.Errorf("X-Amz-Date = %q, want %q", got, "20150830T123600Z")
	}
	if got := request.Header.Get("X-Amz-Security-Token"); got != "" {
		t.Errorf("X-Amz-Security-Token = %q, want unset for static credentials", got)
	}

	wantAuthorization := "AWS4-HMAC-SHA256 " +
		"Credential=AKIDEXAMPLE/20150830/us-east-1/iam/aws4_request, " +
		"SignedHeaders=content-type;host;x-amz-date, " +
		"Signature=5d672d79c15b13162d9279b0855cfba6789a8edb4c82c400e06b5924a6f2b5d7"
	if got := request.Header.Get("Authorization"); got != wantAuthorization {
		t.Errorf("Authorization =\n  %q\nwant\n  %q", got, wantAuthorization)
	}
}

func TestSignRequestSessionToken(t *testing.T) {
	request, err := http.NewRequest(http.MethodPost, "https://sns.us-east-1.amazonaws.com/", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	credentials := Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "FwoGZXIvYXdzEBY",
	}
	signRequest(request, emptyPayloadHash, credentials, "us-east-1", "sns", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	if got := request.Header.Get("X-Amz-Security-Token"); got != "FwoGZXIvYXdzEBY" {
		t.Errorf("X-Amz-Security-Token = %q, want the session token", got)
	}

	authorization := request.Header.Get("Authorization")
	wantHeaders := "SignedHeaders=content-type;host;x-amz-date;x-amz-security-token,"
	if !strings.Contains(authorization, wantHeaders) {
		t.Errorf("Authorization %q does not list the security token in SignedHeaders", authorization)
	}
}

// TestSignRequestEmptyPath checks that a URL with no path signs the
// same as one with an explicit "/": the canonical request uses "/"
// for both, so the signatures must agree.
func TestSignRequestEmptyPath(t *testing.T) {
	credentials := Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}
	signedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	signatures := make([]string, 0, 2)
	for _, target := range []string{"https://sns.us-east-1.amazonaws.com", "https://sns.us-east-1.amazonaws.com/"} {
		request, err := http.NewRequest(http.MethodPost, target, nil)
		if err != nil {
			t.Fatalf("NewRequest(%s): %v", target, err)
		}
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		signRequest(request, emptyPayloadHash, credentials, "us-east-1", "sns", signedAt)
		signatures = append(signatures, request.Header.Get("Authorization"))
	}

	if signatures[0] != signatures[1] {
		t.Errorf("signatures differ for empty vs explicit root path:\n  %q\n  %q", signatures[0], signatures[1])
	}
}

func TestCanonicalQueryString(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{
			name:  "empty",
			query: url.Values{},
			want:  "",
		},
		{
			name:  "sorted by name",
			query: url.Values{"Version": {"2010-03-31"}, "Action": {"Publish"}},
			want:  "Action=Publish&Version=2010-03-31",
		},
		{
			name:  "repeated name sorted by value",
			query: url.Values{"Attr": {"zeta", "alpha"}},
			want:  "Attr=alpha&Attr=zeta",
		},
		{
			name:  "values escaped",
			query: url.Values{"Message": {"hello world"}},
			want:  "Message=hello%20world",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := canonicalQueryString(test.query); got != test.want {
				t.Errorf("canonicalQueryString = %q, want %q", got, test.want)
			}
		})
	}
}

func TestURIEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AZaz09", "AZaz09"},
		{"-_.~", "-_.~"},
		{"hello world", "hello%20world"},
		{"a+b=c", "a%2Bb%3Dc"},
		{"arn:aws:sns:us-east-1:123:topic", "arn%3Aaws%3Asns%3Aus-east-1%3A123%3Atopic"},
		{"héllo", "h%C3%A9llo"},
	}
	for _, test := range tests {
		if got := uriEscape(test.in); got != test.want {
			t.Errorf("uriEscape(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
