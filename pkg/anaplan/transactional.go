package anaplan

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/payload"
)

// MaxListItemsPerRequest is the largest batch the list item endpoints accept.
const MaxListItemsPerRequest = 100_000

// ListModules lists the modules of the model.
func (c *Client) ListModules(ctx context.Context) ([]Module, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	return api.ListAll[Module](ctx, c.svc, api.PageQuery{URL: base + "/modules", ResultKey: "modules"})
}

// GetModelStatus reports the model's current request.
func (c *Client) GetModelStatus(ctx context.Context) (*ModelStatus, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		RequestStatus ModelStatus `json:"requestStatus"`
	}

	if err := c.svc.Get(ctx, base+"/status", nil, &resp); err != nil {
		return nil, err
	}

	return &resp.RequestStatus, nil
}

// ListLineItems lists the line items of the model, or of one module when
// moduleID is not zero.
func (c *Client) ListLineItems(ctx context.Context, moduleID int64) ([]LineItem, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	u := base + "/lineItems"
	if moduleID != 0 {
		u = fmt.Sprintf("%s/modules/%d/lineItems", base, moduleID)
	}

	var resp struct {
		Items []LineItem `json:"items"`
	}

	if err := c.svc.Get(ctx, u, url.Values{"includeAll": {"true"}}, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// ListLists lists the lists of the model.
func (c *Client) ListLists(ctx context.Context) ([]List, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	return api.ListAll[List](ctx, c.svc, api.PageQuery{URL: base + "/lists", ResultKey: "lists"})
}

// GetListMetadata describes one list.
func (c *Client) GetListMetadata(ctx context.Context, listID int64) (*ListMetadata, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Metadata ListMetadata `json:"metadata"`
	}

	if err := c.svc.Get(ctx, fmt.Sprintf("%s/lists/%d", base, listID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Metadata, nil
}

// GetListItems returns every item of a list.
func (c *Client) GetListItems(ctx context.Context, listID int64) ([]ListItem, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		ListItems []ListItem `json:"listItems"`
	}

	u := fmt.Sprintf("%s/lists/%d/items", base, listID)
	if err := c.svc.Get(ctx, u, url.Values{"includeAll": {"true"}}, &resp); err != nil {
		return nil, err
	}

	return resp.ListItems, nil
}

// batches splits items into slices of at most MaxListItemsPerRequest.
func batches(items []map[string]any) [][]map[string]any {
	var out [][]map[string]any

	for start := 0; start < len(items); start += MaxListItemsPerRequest {
		out = append(out, items[start:min(start+MaxListItemsPerRequest, len(items))])
	}

	return out
}

// listItemsAction posts items to the list in batches through the executor
// and collects one decoded response per batch.
func listItemsAction[T any](ctx context.Context, c *Client, listID int64, action string, items []map[string]any) ([]T, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/lists/%d/items?action=%s", base, listID, action)
	parts := batches(items)
	results := make([]T, len(parts))

	if len(parts) > 1 {
		c.logger.Info("splitting list items into batches",
			slog.Int64("list_id", listID),
			slog.String("action", action),
			slog.Int("items", len(items)),
			slog.Int("batches", len(parts)),
		)
	}

	err = c.svc.Executor().Run(ctx, len(parts), func(ctx context.Context, i int) error {
		return c.svc.Post(ctx, u, map[string]any{"items": parts[i]}, &results[i])
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// InsertListItems adds items to a list. Each item needs at least a code and
// a name. Large inputs are sent in batches whose results are merged.
//
// A batch that timed out may still have been applied; its retry then
// reports the items as ignored rather than added.
func (c *Client) InsertListItems(ctx context.Context, listID int64, items []map[string]any) (InsertionResult, error) {
	results, err := listItemsAction[InsertionResult](ctx, c, listID, "add", items)
	if err != nil {
		return InsertionResult{}, err
	}

	return payload.MergeInsertions(results...), nil
}

// DeleteListItems removes items identified by code or id and returns the
// number deleted.
func (c *Client) DeleteListItems(ctx context.Context, listID int64, items []map[string]any) (int, error) {
	results, err := listItemsAction[struct {
		Deleted int `json:"deleted"`
	}](ctx, c, listID, "delete", items)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, r := range results {
		total += r.Deleted
	}

	return total, nil
}

// ResetListIndex resets the item index of an empty list.
func (c *Client) ResetListIndex(ctx context.Context, listID int64) error {
	base, err := c.transactionalURL()
	if err != nil {
		return err
	}

	return c.svc.PostEmpty(ctx, fmt.Sprintf("%s/lists/%d/resetIndex", base, listID), nil)
}

// UpdateModuleData writes cells to a module. A single request is limited
// to 100,000 cells or 15 MB; larger writes belong to an import.
func (c *Client) UpdateModuleData(ctx context.Context, moduleID int64, data []map[string]any) (*ModuleDataResult, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var res ModuleDataResult
	if err := c.svc.Post(ctx, fmt.Sprintf("%s/modules/%d/data", base, moduleID), data, &res); err != nil {
		return nil, err
	}

	return &res, nil
}
