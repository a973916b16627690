// Package notionsync mirrors a user's transactions into a Notion database.
// Pages are keyed by transaction id, making the sync idempotent; pages
// whose transaction no longer exists are archived.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionService is the slice of the Notion API the sync needs; a small
// interface so tests can script it.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// Client implements NotionService with the official SDK.
type Client struct {
	api *notionapi.Client
}

// NewClient authenticates with the given integration token.
func NewClient(token string) *Client {
	return &Client{api: notionapi.NewClient(notionapi.Token(token))}
}

func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}
	page, err := c.api.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("notionsync: create page: %w", err)
	}
	return page, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("notionsync: query database: %w", err)
	}
	return resp, nil
}

func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	}
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req); err != nil {
		return fmt.Errorf("notionsync: archive page: %w", err)
	}
	return nil
}

var _ NotionService = (*Client)(nil)
