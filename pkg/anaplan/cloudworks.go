package anaplan

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/payload"
)

// Payload is a request body given as loosely typed JSON. Keys may be
// snake_case or camelCase; they are normalized and validated before sending.
type Payload = map[string]any

// Schedule states accepted by SetScheduleStatus.
const (
	ScheduleEnabled  = "enabled"
	ScheduleDisabled = "disabled"
)

func (c *Client) integrationsURL(path ...string) string {
	u := c.hosts.CloudWorks + "/2/0/integrations"
	for _, p := range path {
		u += "/" + url.PathEscape(p)
	}

	return u
}

// ListConnections lists the CloudWorks connections.
func (c *Client) ListConnections(ctx context.Context) ([]Connection, error) {
	return api.ListAll[Connection](ctx, c.svc, api.PageQuery{
		URL:       c.integrationsURL("connections"),
		ResultKey: "connections",
	})
}

// CreateConnection creates a connection from a {type, body} input and returns
// its id. The type is inferred from the body when absent.
func (c *Client) CreateConnection(ctx context.Context, in Payload) (string, error) {
	body, err := payload.ConnectionInput(in)
	if err != nil {
		return "", err
	}

	var resp struct {
		Connections struct {
			ConnectionID string `json:"connectionId"`
		} `json:"connections"`
	}

	if err := c.svc.Post(ctx, c.integrationsURL("connections"), body, &resp); err != nil {
		return "", err
	}

	id := resp.Connections.ConnectionID
	c.logger.Info("created connection", slog.String("connection_id", id))

	return id, nil
}

// UpdateConnection replaces every field of a connection. Use
// PatchConnection to change only some.
func (c *Client) UpdateConnection(ctx context.Context, connectionID string, in Payload) error {
	body, err := payload.Connection(in)
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, c.integrationsURL("connections", connectionID), body, nil)
}

// PatchConnection sends body unvalidated.
func (c *Client) PatchConnection(ctx context.Context, connectionID string, body Payload) error {
	return c.svc.Patch(ctx, c.integrationsURL("connections", connectionID), body, nil)
}

// DeleteConnection deletes a connection.
func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	if err := c.svc.Delete(ctx, c.integrationsURL("connections", connectionID), nil); err != nil {
		return err
	}

	c.logger.Info("deleted connection", slog.String("connection_id", connectionID))

	return nil
}

// ListIntegrations lists the integrations sorted by name.
func (c *Client) ListIntegrations(ctx context.Context, descending bool) ([]Integration, error) {
	sortBy := "name"
	if descending {
		sortBy = "-name"
	}

	return api.ListAll[Integration](ctx, c.svc, api.PageQuery{
		URL:       c.integrationsURL(),
		ResultKey: "integrations",
		Params:    url.Values{"sortBy": {sortBy}},
	})
}

// GetIntegration returns one integration. Its Type is always empty.
func (c *Client) GetIntegration(ctx context.Context, integrationID string) (*Integration, error) {
	var resp struct {
		Integration Integration `json:"integration"`
	}

	if err := c.svc.Get(ctx, c.integrationsURL(integrationID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Integration, nil
}

// CreateIntegration creates an integration and returns its id. Input with
// jobs creates an import or export integration; input with only a processId
// creates one that runs the process.
func (c *Client) CreateIntegration(ctx context.Context, in Payload) (string, error) {
	body, err := payload.Integration(in)
	if err != nil {
		return "", err
	}

	var resp struct {
		Integration struct {
			IntegrationID string `json:"integrationId"`
		} `json:"integration"`
	}

	if err := c.svc.Post(ctx, c.integrationsURL(), body, &resp); err != nil {
		return "", err
	}

	id := resp.Integration.IntegrationID
	c.logger.Info("created integration", slog.String("integration_id", id))

	return id, nil
}

// UpdateIntegration replaces an integration.
func (c *Client) UpdateIntegration(ctx context.Context, integrationID string, in Payload) error {
	body, err := payload.Integration(in)
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, c.integrationsURL(integrationID), body, nil)
}

// RunIntegration starts an integration and returns the run id.
func (c *Client) RunIntegration(ctx context.Context, integrationID string) (string, error) {
	var resp struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
	}

	if err := c.svc.PostEmpty(ctx, c.integrationsURL(integrationID, "run"), &resp); err != nil {
		return "", err
	}

	c.logger.Info("started integration run",
		slog.String("integration_id", integrationID),
		slog.String("run_id", resp.Run.ID),
	)

	return resp.Run.ID, nil
}

// DeleteIntegration deletes an integration.
func (c *Client) DeleteIntegration(ctx context.Context, integrationID string) error {
	if err := c.svc.Delete(ctx, c.integrationsURL(integrationID), nil); err != nil {
		return err
	}

	c.logger.Info("deleted integration", slog.String("integration_id", integrationID))

	return nil
}

// GetRunHistory lists past runs of an integration.
func (c *Client) GetRunHistory(ctx context.Context, integrationID string) ([]RunSummary, error) {
	var resp struct {
		History struct {
			Runs []RunSummary `json:"runs"`
		} `json:"history_of_runs"`
	}

	if err := c.svc.Get(ctx, c.integrationsURL("runs", integrationID), nil, &resp); err != nil {
		return nil, err
	}

	return resp.History.Runs, nil
}

// GetRunStatus returns the state of one run.
func (c *Client) GetRunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	var resp struct {
		Run RunStatus `json:"run"`
	}

	if err := c.svc.Get(ctx, c.integrationsURL("run", runID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Run, nil
}

// GetRunError returns the error details of a failed run, or nil when the
// run recorded none.
func (c *Client) GetRunError(ctx context.Context, runID string) (*RunError, error) {
	var resp struct {
		Runs *RunError `json:"runs"`
	}

	if err := c.svc.Get(ctx, c.integrationsURL("runerror", runID), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Runs, nil
}

// GetImportErrorDump downloads the failure dump of an import run.
func (c *Client) GetImportErrorDump(ctx context.Context, runID string) ([]byte, error) {
	return c.svc.GetBinary(ctx, c.integrationsURL("run", runID, "dump"))
}

// GetProcessErrorDump downloads the failure dump of one import inside a
// process run.
func (c *Client) GetProcessErrorDump(ctx context.Context, runID string, actionID int64) ([]byte, error) {
	return c.svc.GetBinary(ctx,
		c.integrationsURL("run", runID, "process", "import", strconv.FormatInt(actionID, 10), "dumps"))
}

// CreateSchedule attaches a schedule to an integration.
func (c *Client) CreateSchedule(ctx context.Context, integrationID string, in Payload) error {
	body, err := payload.Schedule(integrationID, in)
	if err != nil {
		return err
	}

	if err := c.svc.Post(ctx, c.integrationsURL(integrationID, "schedule"), body, nil); err != nil {
		return err
	}

	c.logger.Info("created schedule", slog.String("integration_id", integrationID))

	return nil
}

// UpdateSchedule replaces an existing schedule.
func (c *Client) UpdateSchedule(ctx context.Context, integrationID string, in Payload) error {
	body, err := payload.Schedule(integrationID, in)
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, c.integrationsURL(integrationID, "schedule"), body, nil)
}

// SetScheduleStatus enables or disables an existing schedule.
func (c *Client) SetScheduleStatus(ctx context.Context, integrationID, status string) error {
	if status != ScheduleEnabled && status != ScheduleDisabled {
		return fmt.Errorf("%w: schedule status %q, want %q or %q",
			ErrInvalidPayload, status, ScheduleEnabled, ScheduleDisabled)
	}

	u := c.integrationsURL(integrationID, "schedule", "status", status)
	if err := c.svc.PostEmpty(ctx, u, nil); err != nil {
		return err
	}

	c.logger.Info("set schedule status",
		slog.String("integration_id", integrationID),
		slog.String("status", status),
	)

	return nil
}

// DeleteSchedule removes the schedule of an integration.
func (c *Client) DeleteSchedule(ctx context.Context, integrationID string) error {
	return c.svc.Delete(ctx, c.integrationsURL(integrationID, "schedule"), nil)
}

// GetNotificationConfig returns a notification configuration as sent by the
// server.
func (c *Client) GetNotificationConfig(ctx context.Context, notificationID string) (map[string]any, error) {
	var resp struct {
		Notifications map[string]any `json:"notifications"`
	}

	if err := c.svc.Get(ctx, c.integrationsURL("notification", notificationID), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Notifications, nil
}

// CreateNotificationConfig creates a notification configuration and returns
// its id. An integration already carries one by default; update that
// instead.
func (c *Client) CreateNotificationConfig(ctx context.Context, in Payload) (string, error) {
	body, err := payload.Notification(in)
	if err != nil {
		return "", err
	}

	var resp struct {
		Notification struct {
			NotificationID string `json:"notificationId"`
		} `json:"notification"`
	}

	if err := c.svc.Post(ctx, c.integrationsURL("notification"), body, &resp); err != nil {
		return "", err
	}

	id := resp.Notification.NotificationID
	c.logger.Info("created notification config", slog.String("notification_id", id))

	return id, nil
}

// UpdateNotificationConfig replaces a notification configuration.
func (c *Client) UpdateNotificationConfig(ctx context.Context, notificationID string, in Payload) error {
	body, err := payload.Notification(in)
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, c.integrationsURL("notification", notificationID), body, nil)
}

// DeleteNotificationConfig deletes a notification configuration.
func (c *Client) DeleteNotificationConfig(ctx context.Context, notificationID string) error {
	return c.svc.Delete(ctx, c.integrationsURL("notification", notificationID), nil)
}
