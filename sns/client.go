// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hearth-home/hearth/lib/clock"
	"github.com/hearth-home/hearth/lib/netutil"
)

const (
	apiVersion  = "2010-03-31"
	serviceName = "sns"
)

// Config holds configuration for creating a Client.
type Config struct {
	// Region is the AWS region the topic lives in (e.g. "us-east-1").
	// Used for request signing and, when BaseURL is empty, to derive
	// the endpoint.
	Region string
	// Credentials sign every request. Load them with CredentialsFromEnv.
	Credentials Credentials
	// BaseURL overrides the API endpoint. Empty means the regional
	// endpoint "https://sns.<region>.amazonaws.com". Set this to point
	// at a local emulator or a test server.
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Clock supplies the signing timestamp. If nil, the real clock is
	// used. Tests inject a fake clock to make signatures deterministic.
	Clock clock.Clock
}

// Client is a pub/sub API client speaking the AWS Query protocol:
// form-encoded POST requests, XML responses, SigV4 signatures.
type Client struct {
	baseURL     string
	region      string
	credentials Credentials
	httpClient  *http.Client
	logger      *slog.Logger
	clock       clock.Clock
}

// NewClient creates a new pub/sub API client.
func NewClient(config Config) (*Client, error) {
	if config.Region == "" {
		return nil, fmt.Errorf("sns: Region is required")
	}
	if config.Credentials.AccessKeyID == "" || config.Credentials.SecretAccessKey == "" {
		return nil, fmt.Errorf("sns: credentials are required (set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY)")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://sns." + config.Region + ".amazonaws.com"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("sns: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		region:      config.Region,
		credentials: config.Credentials,
		httpClient:  httpClient,
		logger:      logger,
		clock:       clk,
	}, nil
}

// Subscribe creates a subscription on the topic for the given protocol
// and endpoint. The returned subscription ARN is PendingConfirmation
// until the endpoint confirms via the token delivered to it; the real
// ARN is returned by ConfirmSubscription.
func (c *Client) Subscribe(ctx context.Context, topicARN, protocol, endpoint string) (string, error) {
	params := url.Values{}
	params.Set("TopicArn", topicARN)
	params.Set("Protocol", protocol)
	params.Set("Endpoint", endpoint)

	var response subscribeResponse
	if err := c.do(ctx, "Subscribe", params, &response); err != nil {
		return "", fmt.Errorf("sns: subscribe %s to %s failed: %w", endpoint, topicARN, err)
	}
	return response.SubscriptionARN, nil
}

// ConfirmSubscription completes a pending subscription using the token
// the service delivered to the endpoint. Returns the confirmed
// subscription ARN.
//
// AuthenticateOnUnsubscribe is sent as false: the subscription may be
// removed by an unsigned unsubscribe request. The bridge tears its own
// subscription down on shutdown, so gating removal behind signatures
// would only complicate recovery after a crash.
func (c *Client) ConfirmSubscription(ctx context.Context, topicARN, token string) (string, error) {
	params := url.Values{}
	params.Set("TopicArn", topicARN)
	params.Set("Token", token)
	params.Set("AuthenticateOnUnsubscribe", "false")

	var response confirmSubscriptionResponse
	if err := c.do(ctx, "ConfirmSubscription", params, &response); err != nil {
		return "", fmt.Errorf("sns: confirming subscription on %s failed: %w", topicARN, err)
	}
	return response.SubscriptionARN, nil
}

// Unsubscribe removes a subscription by its ARN.
func (c *Client) Unsubscribe(ctx context.Context, subscriptionARN string) error {
	params := url.Values{}
	params.Set("SubscriptionArn", subscriptionARN)

	if err := c.do(ctx, "Unsubscribe", params, nil); err != nil {
		return fmt.Errorf("sns: unsubscribe %s failed: %w", subscriptionARN, err)
	}
	return nil
}

// Publish sends a message to the topic and returns the message ID the
// service assigned to it.
func (c *Client) Publish(ctx context.Context, topicARN, message string) (string, error) {
	params := url.Values{}
	params.Set("TopicArn", topicARN)
	params.Set("Message", message)

	var response publishResponse
	if err := c.do(ctx, "Publish", params, &response); err != nil {
		return "", fmt.Errorf("sns: publish to %s failed: %w", topicARN, err)
	}
	return response.MessageID, nil
}

// ListSubscriptionsByTopic returns every subscription on the topic,
// following pagination until the service reports no further pages.
func (c *Client) ListSubscriptionsByTopic(ctx context.Context, topicARN string) ([]Subscription, error) {
	var subscriptions []Subscription
	nextToken := ""
	for {
		params := url.Values{}
		params.Set("TopicArn", topicARN)
		if nextToken != "" {
			params.Set("NextToken", nextToken)
		}

		var response listSubscriptionsByTopicResponse
		if err := c.do(ctx, "ListSubscriptionsByTopic", params, &response); err != nil {
			return nil, fmt.Errorf("sns: listing subscriptions on %s failed: %w", topicARN, err)
		}
		subscriptions = append(subscriptions, response.Subscriptions...)

		if response.NextToken == "" {
			return subscriptions, nil
		}
		nextToken = response.NextToken
	}
}

// do performs one Query API call: sign and POST the form-encoded
// parameters, then decode the XML response into result (which may be
// nil for calls whose response carries no result element). Non-2xx
// responses are parsed into *APIError.
func (c *Client) do(ctx context.Context, action string, params url.Values, result any) error {
	params.Set("Action", action)
	params.Set("Version", apiVersion)
	body := params.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	signRequest(request, hexSHA256([]byte(body)), c.credentials, c.region, serviceName, c.clock.Now())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", action, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		// All Query API error responses use the same XML shape.
		var wireError errorResponse
		if xmlErr := xml.Unmarshal(responseBody, &wireError); xmlErr != nil || wireError.Code == "" {
			// Non-XML error (a proxy or load balancer speaking for the
			// service). Fail loud with the status and a body excerpt.
			return fmt.Errorf("unexpected %d response to %s: %s",
				response.StatusCode, action, excerpt(responseBody))
		}
		return &APIError{
			Code:       wireError.Code,
			Message:    wireError.Message,
			Type:       wireError.Type,
			StatusCode: response.StatusCode,
			RequestID:  wireError.RequestID,
		}
	}

	if result == nil {
		return nil
	}
	if err := xml.Unmarshal(responseBody, result); err != nil {
		return fmt.Errorf("parsing %s response: %w", action, err)
	}
	return nil
}

// excerpt bounds a response body for inclusion in an error message.
func excerpt(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
