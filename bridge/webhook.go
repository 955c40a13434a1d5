// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// SNS delivery headers. The topic ARN header is authoritative for
// routing; the envelope copy is informational.
const (
	headerMessageType = "X-Amz-Sns-Message-Type"
	headerTopicARN    = "X-Amz-Sns-Topic-Arn"
)

// Message types SNS posts to an HTTP endpoint.
const (
	messageTypeSubscriptionConfirmation = "SubscriptionConfirmation"
	messageTypeNotification             = "Notification"
	messageTypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// maxWebhookBody caps how much of a delivery is read. SNS limits
// messages to 256 KiB; anything past 1 MiB is not SNS.
const maxWebhookBody = 1 << 20

// envelope is the JSON body of an SNS HTTP delivery.
type envelope struct {
	Type           string `json:"Type"`
	MessageID      string `json:"MessageId"`
	Token          string `json:"Token"`
	TopicARN       string `json:"TopicArn"`
	Subject        string `json:"Subject"`
	Message        string `json:"Message"`
	Timestamp      string `json:"Timestamp"`
	SubscribeURL   string `json:"SubscribeURL"`
	UnsubscribeURL string `json:"UnsubscribeURL"`
}

// webhookHandler accepts SNS deliveries. It acknowledges first and
// processes after: SNS redelivers on any non-2xx, and redelivery
// cannot fix a payload we cannot handle, so the 200 always goes out
// before the payload is even parsed. Processing runs in the request
// goroutine with the response already flushed.
type webhookHandler struct {
	// topicARN is the only topic this bridge serves. Notifications
	// for anything else are dropped.
	topicARN string

	logger *slog.Logger

	// onConfirmation receives SubscriptionConfirmation deliveries.
	// The callback owns topic validation; a mismatch there is fatal
	// to the process, not to this request.
	onConfirmation func(topicARN, token string)

	// onNotification receives the Message payload of Notification
	// deliveries.
	onNotification func(message string)
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, readErr := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))

	// Acknowledge before processing.
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if readErr != nil {
		h.logger.Warn("reading webhook body failed", "error", readErr)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.logger.Warn("dropping malformed webhook body", "error", err)
		return
	}

	topicARN := r.Header.Get(headerTopicARN)
	if topicARN == "" {
		h.logger.Warn("dropping delivery without topic header", "message_id", env.MessageID)
		return
	}

	messageType := r.Header.Get(headerMessageType)
	if messageType == "" {
		messageType = env.Type
	}

	switch messageType {
	case messageTypeSubscriptionConfirmation:
		h.logger.Info("subscription confirmation received",
			"topic_arn", topicARN, "message_id", env.MessageID)
		h.onConfirmation(topicARN, env.Token)

	case messageTypeNotification:
		if topicARN != h.topicARN {
			h.logger.Warn("dropping notification for foreign topic",
				"topic_arn", topicARN, "message_id", env.MessageID)
			return
		}
		if env.Message == "" {
			h.logger.Warn("dropping notification with empty message",
				"message_id", env.MessageID)
			return
		}
		h.onNotification(env.Message)

	case messageTypeUnsubscribeConfirmation:
		h.logger.Info("unsubscribe confirmation received",
			"topic_arn", topicARN, "message_id", env.MessageID)

	default:
		h.logger.Warn("unknown delivery type ignored",
			"type", messageType, "message_id", env.MessageID)
	}
}
