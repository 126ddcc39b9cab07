package anaplan

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// Model online states accepted by ChangeModelStatus.
const (
	ModelOnline  = "online"
	ModelOffline = "offline"
)

// ChangeModelStatus takes the model online or offline.
func (c *Client) ChangeModelStatus(ctx context.Context, status string) error {
	if status != ModelOnline && status != ModelOffline {
		return fmt.Errorf("%w: model status %q, want %q or %q", ErrInvalidPayload, status, ModelOnline, ModelOffline)
	}

	base, err := c.transactionalURL()
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, base+"/onlineStatus", map[string]string{"status": status}, nil)
}

func (c *Client) revisions(ctx context.Context, path string, params url.Values) ([]Revision, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Revisions []Revision `json:"revisions"`
	}

	if err := c.svc.Get(ctx, base+path, params, &resp); err != nil {
		return nil, err
	}

	return resp.Revisions, nil
}

// ListRevisions lists the revisions of the model.
func (c *Client) ListRevisions(ctx context.Context) ([]Revision, error) {
	return c.revisions(ctx, "/alm/revisions", nil)
}

// GetLatestRevision returns the most recent revision, or nil when the model
// has none.
func (c *Client) GetLatestRevision(ctx context.Context) (*Revision, error) {
	revs, err := c.revisions(ctx, "/alm/latestRevision", nil)
	if err != nil || len(revs) == 0 {
		return nil, err
	}

	return &revs[0], nil
}

// ListSyncableRevisions lists the revisions of sourceModelID that can be
// synchronized to this model, newest first.
func (c *Client) ListSyncableRevisions(ctx context.Context, sourceModelID string) ([]Revision, error) {
	return c.revisions(ctx, "/alm/syncableRevisions", url.Values{"sourceModelId": {sourceModelID}})
}

// CreateRevision tags the model's current state.
func (c *Client) CreateRevision(ctx context.Context, name, description string) (*Revision, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Revision Revision `json:"revision"`
	}

	body := map[string]string{"name": name, "description": description}
	if err := c.svc.Post(ctx, base+"/alm/revisions", body, &resp); err != nil {
		return nil, err
	}

	return &resp.Revision, nil
}

// ListSyncTasks lists sync tasks targeting the model that are running or
// finished within the last 48 hours.
func (c *Client) ListSyncTasks(ctx context.Context) ([]SyncTask, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tasks []SyncTask `json:"tasks"`
	}

	if err := c.svc.Get(ctx, base+"/alm/syncTasks", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Tasks, nil
}

// GetSyncTask returns one sync task.
func (c *Client) GetSyncTask(ctx context.Context, taskID string) (*SyncTask, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Task SyncTask `json:"task"`
	}

	if err := c.svc.Get(ctx, base+"/alm/syncTasks/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Task, nil
}

// SyncModels synchronizes sourceRevisionID of sourceModelID onto
// targetRevisionID of this model. With wait it polls until the task
// completes; otherwise it returns the freshly created task.
func (c *Client) SyncModels(
	ctx context.Context, sourceRevisionID, sourceModelID, targetRevisionID string, wait bool,
) (*SyncTask, error) {
	pair := revisionPair{sourceRevisionID, sourceModelID, targetRevisionID}

	return runALMTask(ctx, c, "/alm/syncTasks", pair, wait, c.GetSyncTask)
}

// ListModelsForRevision lists the models revisionID has been applied to.
func (c *Client) ListModelsForRevision(ctx context.Context, revisionID string) ([]ModelRevision, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Models []ModelRevision `json:"appliedToModels"`
	}

	u := base + "/alm/revisions/" + url.PathEscape(revisionID) + "/appliedToModels"
	if err := c.svc.Get(ctx, u, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Models, nil
}

// CreateComparisonReport starts a full comparison of sourceRevisionID of
// sourceModelID against targetRevisionID of this model. With wait it polls
// until the report is ready.
func (c *Client) CreateComparisonReport(
	ctx context.Context, sourceRevisionID, sourceModelID, targetRevisionID string, wait bool,
) (*ReportTask, error) {
	pair := revisionPair{sourceRevisionID, sourceModelID, targetRevisionID}

	return runALMTask(ctx, c, "/alm/comparisonReportTasks", pair, wait, c.GetComparisonReportTask)
}

// GetComparisonReportTask returns one comparison report task.
func (c *Client) GetComparisonReportTask(ctx context.Context, taskID string) (*ReportTask, error) {
	return c.reportTask(ctx, "/alm/comparisonReportTasks/", taskID)
}

// GetComparisonReport downloads the report produced by a completed task.
func (c *Client) GetComparisonReport(ctx context.Context, task *ReportTask) ([]byte, error) {
	u, err := c.reportURL("/alm/comparisonReports/", task)
	if err != nil {
		return nil, err
	}

	return c.svc.GetBinary(ctx, u)
}

// CreateComparisonSummary starts a summary comparison between two
// revisions. With wait it polls until the summary is ready.
func (c *Client) CreateComparisonSummary(
	ctx context.Context, sourceRevisionID, sourceModelID, targetRevisionID string, wait bool,
) (*ReportTask, error) {
	pair := revisionPair{sourceRevisionID, sourceModelID, targetRevisionID}

	return runALMTask(ctx, c, "/alm/summaryReportTasks", pair, wait, c.GetComparisonSummaryTask)
}

// GetComparisonSummaryTask returns one comparison summary task.
func (c *Client) GetComparisonSummaryTask(ctx context.Context, taskID string) (*ReportTask, error) {
	return c.reportTask(ctx, "/alm/summaryReportTasks/", taskID)
}

// GetComparisonSummary fetches the summary produced by a completed task.
func (c *Client) GetComparisonSummary(ctx context.Context, task *ReportTask) (*SummaryReport, error) {
	u, err := c.reportURL("/alm/summaryReports/", task)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Summary SummaryReport `json:"summaryReport"`
	}

	if err := c.svc.Get(ctx, u, nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Summary, nil
}

func (c *Client) reportTask(ctx context.Context, path, taskID string) (*ReportTask, error) {
	base, err := c.transactionalURL()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Task ReportTask `json:"task"`
	}

	if err := c.svc.Get(ctx, base+path+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Task, nil
}

// reportURL addresses the output of task, keyed by target then source
// revision.
func (c *Client) reportURL(path string, task *ReportTask) (string, error) {
	if task == nil || task.Result == nil {
		return "", fmt.Errorf("%w: report task has no result", ErrInvalidPayload)
	}

	base, err := c.transactionalURL()
	if err != nil {
		return "", err
	}

	return base + path + url.PathEscape(task.Result.TargetRevisionID) + "/" +
		url.PathEscape(task.Result.SourceRevisionID), nil
}

// revisionPair is the body of every ALM task that compares or syncs two
// revisions.
type revisionPair struct {
	SourceRevisionID string `json:"sourceRevisionId"`
	SourceModelID    string `json:"sourceModelId"`
	TargetRevisionID string `json:"targetRevisionId"`
}

// runALMTask creates an ALM task at path and returns its first snapshot,
// or with wait the snapshot that reports COMPLETE.
func runALMTask[T api.TaskStater](
	ctx context.Context, c *Client, path string, pair revisionPair, wait bool,
	get func(context.Context, string) (T, error),
) (T, error) {
	var zero T

	base, err := c.transactionalURL()
	if err != nil {
		return zero, err
	}

	var resp struct {
		Task struct {
			TaskID string `json:"taskId"`
		} `json:"task"`
	}

	if err := c.svc.Post(ctx, base+path, pair, &resp); err != nil {
		return zero, err
	}

	taskID := resp.Task.TaskID
	c.logger.Info("created alm task",
		slog.String("path", path),
		slog.String("task_id", taskID),
		slog.String("source_model_id", pair.SourceModelID),
		slog.String("source_revision_id", pair.SourceRevisionID),
	)

	if !wait {
		return get(ctx, taskID)
	}

	return api.PollTask(ctx, c.svc, func(ctx context.Context) (T, error) {
		return get(ctx, taskID)
	})
}
