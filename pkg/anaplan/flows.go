package anaplan

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/payload"
)

// flowPageSize is the largest page the flows endpoint serves.
const flowPageSize = 25

func (c *Client) flowsURL(path ...string) string {
	u := c.hosts.CloudWorks + "/2/0/integrationflows"
	for _, p := range path {
		u += "/" + url.PathEscape(p)
	}

	return u
}

// ListFlows lists the integration flows, optionally only those created by
// the current user.
func (c *Client) ListFlows(ctx context.Context, currentUserOnly bool) ([]FlowSummary, error) {
	mine := "0"
	if currentUserOnly {
		mine = "1"
	}

	return api.ListAll[FlowSummary](ctx, c.svc, api.PageQuery{
		URL:       c.flowsURL(),
		ResultKey: "integrationFlows",
		Params:    url.Values{"myIntegrations": {mine}},
		PageSize:  flowPageSize,
	})
}

// GetFlow returns a flow with its steps.
func (c *Client) GetFlow(ctx context.Context, flowID string) (*Flow, error) {
	var resp struct {
		Flow Flow `json:"integrationFlow"`
	}

	if err := c.svc.Get(ctx, c.flowsURL(flowID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Flow, nil
}

// RunFlow starts a flow and returns the run id. With steps only those steps
// run. The flow and its steps must not already be running.
func (c *Client) RunFlow(ctx context.Context, flowID string, steps ...string) (string, error) {
	var resp struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
	}

	u := c.flowsURL(flowID, "run")

	var err error
	if len(steps) > 0 {
		err = c.svc.Post(ctx, u, map[string][]string{"stepsToRun": steps}, &resp)
	} else {
		err = c.svc.PostEmpty(ctx, u, &resp)
	}

	if err != nil {
		return "", err
	}

	c.logger.Info("started flow run", slog.String("flow_id", flowID), slog.String("run_id", resp.Run.ID))

	return resp.Run.ID, nil
}

// CreateFlow creates a flow and returns its id. A flow needs at least two
// steps, each depending on the one before it.
func (c *Client) CreateFlow(ctx context.Context, in Payload) (string, error) {
	body, err := payload.Flow(in)
	if err != nil {
		return "", err
	}

	var resp struct {
		Flow struct {
			ID string `json:"integrationFlowId"`
		} `json:"integrationFlow"`
	}

	if err := c.svc.Post(ctx, c.flowsURL(), body, &resp); err != nil {
		return "", err
	}

	c.logger.Info("created flow", slog.String("flow_id", resp.Flow.ID))

	return resp.Flow.ID, nil
}

// UpdateFlow replaces a flow. Partial updates are not supported.
func (c *Client) UpdateFlow(ctx context.Context, flowID string, in Payload) error {
	body, err := payload.Flow(in)
	if err != nil {
		return err
	}

	return c.svc.Put(ctx, c.flowsURL(flowID), body, nil)
}

// DeleteFlow deletes a flow. Its steps are kept.
func (c *Client) DeleteFlow(ctx context.Context, flowID string) error {
	if err := c.svc.Delete(ctx, c.flowsURL(flowID), nil); err != nil {
		return err
	}

	c.logger.Info("deleted flow", slog.String("flow_id", flowID))

	return nil
}
