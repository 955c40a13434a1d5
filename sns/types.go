// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"encoding/xml"
	"os"
	"strings"
)

// ARNPrefix is the leading section of every real SNS resource
// identifier. A subscription whose identifier lacks this prefix is not
// addressable (see PendingConfirmation).
const ARNPrefix = "arn:aws:sns:"

// PendingConfirmation is the literal SNS reports in place of a
// subscription ARN while the endpoint has not confirmed. It is not an
// ARN and cannot be passed to Unsubscribe.
const PendingConfirmation = "pending confirmation"

// Credentials is a static AWS credential set. SessionToken is empty
// for long-lived keys and set for temporary (STS) credentials.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CredentialsFromEnv reads the standard AWS credential environment
// variables: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, and
// AWS_SESSION_TOKEN.
func CredentialsFromEnv() Credentials {
	return Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
}

// Subscription describes one subscription on a topic, as returned by
// ListSubscriptionsByTopic.
type Subscription struct {
	TopicARN        string `xml:"TopicArn"`
	Protocol        string `xml:"Protocol"`
	SubscriptionARN string `xml:"SubscriptionArn"`
	Owner           string `xml:"Owner"`
	Endpoint        string `xml:"Endpoint"`
}

// Confirmed reports whether the subscription has a real ARN, meaning
// the endpoint completed the confirmation handshake. Unconfirmed
// subscriptions carry the PendingConfirmation placeholder instead.
func (s Subscription) Confirmed() bool {
	return strings.HasPrefix(s.SubscriptionARN, ARNPrefix)
}

// Wire-level response envelopes. The Query API wraps every result in
// an <OperationResponse><OperationResult> pair plus request metadata;
// these types flatten that for the client methods.

type subscribeResponse struct {
	XMLName         xml.Name `xml:"SubscribeResponse"`
	SubscriptionARN string   `xml:"SubscribeResult>SubscriptionArn"`
	RequestID       string   `xml:"ResponseMetadata>RequestId"`
}

type confirmSubscriptionResponse struct {
	XMLName         xml.Name `xml:"ConfirmSubscriptionResponse"`
	SubscriptionARN string   `xml:"ConfirmSubscriptionResult>SubscriptionArn"`
	RequestID       string   `xml:"ResponseMetadata>RequestId"`
}

type publishResponse struct {
	XMLName   xml.Name `xml:"PublishResponse"`
	MessageID string   `xml:"PublishResult>MessageId"`
	RequestID string   `xml:"ResponseMetadata>RequestId"`
}

type listSubscriptionsByTopicResponse struct {
	XMLName       xml.Name       `xml:"ListSubscriptionsByTopicResponse"`
	Subscriptions []Subscription `xml:"ListSubscriptionsByTopicResult>Subscriptions>member"`
	NextToken     string         `xml:"ListSubscriptionsByTopicResult>NextToken"`
	RequestID     string         `xml:"ResponseMetadata>RequestId"`
}

type errorResponse struct {
	XMLName   xml.Name `xml:"ErrorResponse"`
	Type      string   `xml:"Error>Type"`
	Code      string   `xml:"Error>Code"`
	Message   string   `xml:"Error>Message"`
	RequestID string   `xml:"RequestId"`
}
