// Package client provides typed request wrappers for the interaction API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

var (
	// ErrTransport covers unreachable servers and unexpected server failures.
	ErrTransport = errors.New("interaction store unavailable")
	// ErrRejected covers illegal transitions, invalid ratings and empty content.
	ErrRejected = errors.New("request rejected")
	// ErrNotFound is returned for unknown interactions or counterparts.
	ErrNotFound = errors.New("not found")
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// ProfileURL is the base URL of the external profile service. Empty disables lookups.
	ProfileURL string
	Token      string
	Timeout    time.Duration
}

// Client calls the interaction API. It performs no retries.
type Client struct {
	baseURL    string
	profileURL string
	token      string
	http       *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		profileURL: strings.TrimRight(cfg.ProfileURL, "/"),
		token:      cfg.Token,
		http:       &http.Client{Timeout: timeout},
	}
}

// ListReceived returns interactions addressed to userID.
func (c *Client) ListReceived(ctx context.Context, userID string) ([]model.Interaction, error) {
	var resp model.ListInteractionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID)+"/interactions/received", nil, &resp); err != nil {
		return nil, fmt.Errorf("list received: %w", err)
	}
	return resp.Interactions, nil
}

// ListSent returns interactions created by userID.
func (c *Client) ListSent(ctx context.Context, userID string) ([]model.Interaction, error) {
	var resp model.ListInteractionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID)+"/interactions/sent", nil, &resp); err != nil {
		return nil, fmt.Errorf("list sent: %w", err)
	}
	return resp.Interactions, nil
}

// Lists holds the independent outcomes of fetching both directions.
type Lists struct {
	Received    []model.Interaction
	ReceivedErr error
	Sent        []model.Interaction
	SentErr     error
}

// ListBoth fetches received and sent interactions concurrently. A failure of one call does not
// discard the result of the other.
func (c *Client) ListBoth(ctx context.Context, userID string) Lists {
	var (
		out Lists
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Received, out.ReceivedErr = c.ListReceived(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		out.Sent, out.SentErr = c.ListSent(ctx, userID)
	}()
	wg.Wait()
	return out
}

// GetThread returns the messages exchanged between userID and counterpartID, in server order.
func (c *Client) GetThread(ctx context.Context, userID, counterpartID string) ([]model.Interaction, error) {
	var resp model.ThreadResponse
	path := "/api/v1/users/" + url.PathEscape(userID) + "/threads/" + url.PathEscape(counterpartID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return resp.Messages, nil
}

// Send sends a direct message. Blank content is rejected without a network call.
func (c *Client) Send(ctx context.Context, senderID, receiverID, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("send: empty content: %w", ErrRejected)
	}

	var resp model.CreatedResponse
	req := model.SendMessageRequest{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", req, &resp); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return resp.InteractionID, nil
}

// SendInvitation invites receiverID to bid on projectID.
func (c *Client) SendInvitation(ctx context.Context, senderID, receiverID, projectID, content string) (string, error) {
	if strings.TrimSpace(projectID) == "" {
		return "", fmt.Errorf("send invitation: missing project: %w", ErrRejected)
	}

	var resp model.CreatedResponse
	req := model.SendInvitationRequest{SenderID: senderID, ReceiverID: receiverID, ProjectID: projectID, Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/v1/invitations", req, &resp); err != nil {
		return "", fmt.Errorf("send invitation: %w", err)
	}
	return resp.InteractionID, nil
}

// SetStatus requests a status transition. Illegal transitions surface as ErrRejected.
func (c *Client) SetStatus(ctx context.Context, interactionID string, status model.Status) error {
	path := "/api/v1/interactions/" + url.PathEscape(interactionID) + "/status"
	if err := c.do(ctx, http.MethodPut, path, model.SetStatusRequest{Status: status}, nil); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// AddReview reviews targetID. The rating must be in [1,5]; the comment may be empty.
func (c *Client) AddReview(ctx context.Context, reviewerID, reviewerName, targetID string, rating int, comment string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("add review: rating %d out of range: %w", rating, ErrRejected)
	}

	var resp model.CreatedResponse
	req := model.AddReviewRequest{
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		TargetID:     targetID,
		Rating:       rating,
		Comment:      comment,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reviews", req, &resp); err != nil {
		return "", fmt.Errorf("add review: %w", err)
	}
	return resp.InteractionID, nil
}

// GetReviews returns the reviews of targetID with their count and mean rating.
func (c *Client) GetReviews(ctx context.Context, targetID string) (*model.ReviewSummary, error) {
	var resp model.ReviewSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(targetID)+"/reviews", nil, &resp); err != nil {
		return nil, fmt.Errorf("get reviews: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doURL(ctx, method, c.baseURL+path, body, out)
}

func (c *Client) doURL(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrTransport, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body model.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, msg)
	}
}
