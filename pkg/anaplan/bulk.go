package anaplan

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/ident"
	"github.com/anaplan-sdk/anaplan-go/internal/payload"
	"github.com/anaplan-sdk/anaplan-go/internal/transfer"
)

// ListOption adjusts the query of a listing.
type ListOption func(url.Values)

// SortBy orders a listing by field, given in camelCase or snake_case.
// Pages of a listing sorted by a non-unique field may overlap.
func SortBy(field string, descending bool) ListOption {
	return func(q url.Values) {
		for k, v := range payload.SortParams(field, descending) {
			q[k] = v
		}
	}
}

func listParams(base url.Values, opts []ListOption) url.Values {
	for _, o := range opts {
		o(base)
	}

	return base
}

// ListWorkspaces lists the workspaces the user can access.
func (c *Client) ListWorkspaces(ctx context.Context, opts ...ListOption) ([]Workspace, error) {
	return api.ListAll[Workspace](ctx, c.svc, api.PageQuery{
		URL:       c.hosts.API + "/2/0/workspaces",
		ResultKey: "workspaces",
		Params:    listParams(url.Values{"tenantDetails": {"true"}}, opts),
	})
}

// ListModels lists the models the user can access.
func (c *Client) ListModels(ctx context.Context, opts ...ListOption) ([]Model, error) {
	return api.ListAll[Model](ctx, c.svc, api.PageQuery{
		URL:       c.hosts.API + "/2/0/models",
		ResultKey: "models",
		Params:    listParams(url.Values{"modelDetails": {"true"}}, opts),
	})
}

func listModel[T any](ctx context.Context, c *Client, collection string) ([]T, error) {
	base, err := c.modelURL()
	if err != nil {
		return nil, err
	}

	return api.ListAll[T](ctx, c.svc, api.PageQuery{URL: base + "/" + collection, ResultKey: collection})
}

// ListFiles lists the files of the model.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	return listModel[File](ctx, c, "files")
}

// ListActions lists the model's "Other Actions". Imports, exports and
// processes have their own listings.
func (c *Client) ListActions(ctx context.Context) ([]Action, error) {
	return listModel[Action](ctx, c, "actions")
}

// ListProcesses lists the processes of the model.
func (c *Client) ListProcesses(ctx context.Context) ([]Process, error) {
	return listModel[Process](ctx, c, "processes")
}

// ListImports lists the imports of the model.
func (c *Client) ListImports(ctx context.Context) ([]Import, error) {
	return listModel[Import](ctx, c, "imports")
}

// ListExports lists the exports of the model. The endpoint is not paginated.
func (c *Client) ListExports(ctx context.Context) ([]Export, error) {
	base, err := c.modelURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Exports []Export `json:"exports"`
	}

	if err := c.svc.Get(ctx, base+"/exports", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Exports, nil
}

// actionURL is the tasks collection of an action, routed by the id range.
func (c *Client) actionURL(actionID int64) (string, error) {
	base, err := c.modelURL()
	if err != nil {
		return "", err
	}

	segment, err := ident.ActionSegment(actionID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%d/tasks", base, segment, actionID), nil
}

// InvokeAction starts an action and returns the spawned task id. Most
// callers want RunAction.
func (c *Client) InvokeAction(ctx context.Context, actionID int64) (string, error) {
	u, err := c.actionURL(actionID)
	if err != nil {
		return "", err
	}

	var resp struct {
		Task struct {
			TaskID string `json:"taskId"`
		} `json:"task"`
	}

	if err := c.svc.Post(ctx, u, map[string]string{"localeName": "en_US"}, &resp); err != nil {
		return "", err
	}

	c.logger.Info("invoked action", slog.Int64("action_id", actionID), slog.String("task_id", resp.Task.TaskID))

	return resp.Task.TaskID, nil
}

// GetTaskStatus returns the state of one task of an action.
func (c *Client) GetTaskStatus(ctx context.Context, actionID int64, taskID string) (*TaskStatus, error) {
	u, err := c.actionURL(actionID)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Task TaskStatus `json:"task"`
	}

	if err := c.svc.Get(ctx, u+"/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Task, nil
}

// ListTaskStatus lists the tasks spawned by an action.
func (c *Client) ListTaskStatus(ctx context.Context, actionID int64) ([]TaskSummary, error) {
	u, err := c.actionURL(actionID)
	if err != nil {
		return nil, err
	}

	return api.ListAll[TaskSummary](ctx, c.svc, api.PageQuery{URL: u, ResultKey: "tasks"})
}

// RunAction invokes an action and polls its task until it completes. A task
// that completes unsuccessfully is returned as an *ActionError.
func (c *Client) RunAction(ctx context.Context, actionID int64) (*TaskStatus, error) {
	taskID, err := c.InvokeAction(ctx, actionID)
	if err != nil {
		return nil, err
	}

	status, err := api.PollTask(ctx, c.svc, func(ctx context.Context) (*TaskStatus, error) {
		return c.GetTaskStatus(ctx, actionID, taskID)
	})
	if err != nil {
		return nil, err
	}

	if status.failed() {
		return status, &api.ActionError{ActionID: actionID, TaskID: taskID, Details: status.details()}
	}

	c.logger.Info("task completed", slog.Int64("action_id", actionID), slog.String("task_id", taskID))

	return status, nil
}

// GetFile downloads a file.
func (c *Client) GetFile(ctx context.Context, fileID int64) ([]byte, error) {
	e, err := c.engine()
	if err != nil {
		return nil, err
	}

	return e.Download(ctx, fileID)
}

// GetFileStream yields a file's chunks in order, holding one batch in
// memory at a time.
func (c *Client) GetFileStream(ctx context.Context, fileID int64) iter.Seq2[[]byte, error] {
	e, err := c.engine()
	if err != nil {
		return func(yield func([]byte, error) bool) { yield(nil, err) }
	}

	return e.DownloadStream(ctx, fileID)
}

// UploadFile uploads content to a file in compressed chunks.
func (c *Client) UploadFile(ctx context.Context, fileID int64, content []byte) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	return e.Upload(ctx, fileID, content)
}

// UploadFileStream uploads chunks of unknown count and marks the file
// complete when chunks is exhausted.
func (c *Client) UploadFileStream(ctx context.Context, fileID int64, chunks iter.Seq2[[]byte, error]) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	return e.UploadStream(ctx, fileID, chunks)
}

// ReaderChunks adapts r for UploadFileStream, yielding chunks of size
// bytes. A size of zero or less uses the 25 MB default.
func ReaderChunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	return transfer.ReaderChunks(r, size)
}

// SliceChunks adapts chunks already in memory for UploadFileStream.
func SliceChunks(chunks ...[]byte) iter.Seq2[[]byte, error] {
	return transfer.SliceChunks(chunks...)
}

// UploadAndImport uploads content to a file and runs an import action.
func (c *Client) UploadAndImport(ctx context.Context, fileID int64, content []byte, actionID int64) error {
	if err := c.UploadFile(ctx, fileID, content); err != nil {
		return err
	}

	_, err := c.RunAction(ctx, actionID)

	return err
}

// ExportAndDownload runs an export and downloads the file it wrote.
func (c *Client) ExportAndDownload(ctx context.Context, actionID int64) ([]byte, error) {
	if _, err := c.RunAction(ctx, actionID); err != nil {
		return nil, err
	}

	return c.GetFile(ctx, actionID)
}

// GetDimensionItems lists the members of a list, list subset, line item
// subset or the users dimension.
func (c *Client) GetDimensionItems(ctx context.Context, dimensionID int64) ([]DimensionItem, error) {
	kind, err := ident.ValidateDimension(dimensionID)
	if err != nil {
		return nil, err
	}

	if kind.Discouraged() {
		c.logger.Warn("listing dimension items is slower than the dedicated endpoint",
			slog.Int64("dimension_id", dimensionID),
			slog.String("kind", string(kind)),
		)
	}

	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []DimensionItem `json:"items"`
	}

	u := base + "/dimensions/" + strconv.FormatInt(dimensionID, 10) + "/items"
	if err := c.svc.Get(ctx, u, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}
