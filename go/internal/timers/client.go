package timers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

// Client is a Store backed by a remote Service.
type Client struct {
	fetchActive   *connect.Client[FetchActiveRequest, FetchActiveResponse]
	purge         *connect.Client[PurgeExpiredOrConflictingRequest, PurgeExpiredOrConflictingResponse]
	insert        *connect.Client[InsertRequest, InsertResponse]
	deleteExpired *connect.Client[DeleteExpiredRequest, DeleteExpiredResponse]
}

// NewClient creates a store client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		fetchActive: connect.NewClient[FetchActiveRequest, FetchActiveResponse](
			httpClient, baseURL+FetchActiveProcedure, opts...),
		purge: connect.NewClient[PurgeExpiredOrConflictingRequest, PurgeExpiredOrConflictingResponse](
			httpClient, baseURL+PurgeExpiredOrConflictingProcedure, opts...),
		insert: connect.NewClient[InsertRequest, InsertResponse](
			httpClient, baseURL+InsertProcedure, opts...),
		deleteExpired: connect.NewClient[DeleteExpiredRequest, DeleteExpiredResponse](
			httpClient, baseURL+DeleteExpiredProcedure, opts...),
	}
}

var _ Store = (*Client)(nil)

func (c *Client) FetchActive(ctx context.Context, resource models.Resource) ([]models.TimerRow, error) {
	resp, err := c.fetchActive.CallUnary(ctx, connect.NewRequest(&FetchActiveRequest{Resource: resource}))
	if err != nil {
		return nil, fmt.Errorf("fetch active timers: %w", err)
	}
	return resp.Msg.Timers, nil
}

func (c *Client) PurgeExpiredOrConflicting(ctx context.Context, resource models.Resource, channel int, now time.Time) error {
	_, err := c.purge.CallUnary(ctx, connect.NewRequest(&PurgeExpiredOrConflictingRequest{
		Resource: resource,
		Channel:  channel,
		NowMs:    models.ToMillis(now),
	}))
	if err != nil {
		return fmt.Errorf("purge timers: %w", err)
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) (uuid.UUID, error) {
	resp, err := c.insert.CallUnary(ctx, connect.NewRequest(&InsertRequest{
		Resource:    resource,
		Channel:     channel,
		Kind:        kind,
		ExpiresAtMs: models.ToMillis(expiresAt),
	}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert timer: %w", err)
	}
	return resp.Msg.ID, nil
}

func (c *Client) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := c.deleteExpired.CallUnary(ctx, connect.NewRequest(&DeleteExpiredRequest{NowMs: models.ToMillis(now)}))
	if err != nil {
		return fmt.Errorf("delete expired timers: %w", err)
	}
	return nil
}
