package anaplan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// Audit event types.
const (
	EventsAll          = "all"
	EventsBYOK         = "byok"
	EventsUserActivity = "user_activity"
)

// auditPageSize is the documented maximum of the audit endpoint.
const auditPageSize = 10_000

// GetEvents returns the audit events of the tenant for the last daysIntoPast
// days. eventType is one of the Events constants; empty means all.
func (c *Client) GetEvents(ctx context.Context, daysIntoPast int, eventType string) ([]Event, error) {
	if eventType == "" {
		eventType = EventsAll
	}

	switch eventType {
	case EventsAll, EventsBYOK, EventsUserActivity:
	default:
		return nil, fmt.Errorf("%w: audit event type %q", ErrInvalidPayload, eventType)
	}

	if daysIntoPast <= 0 {
		daysIntoPast = 30
	}

	return api.ListAll[Event](ctx, c.svc, api.PageQuery{
		URL:       c.hosts.Audit + "/audit/api/1/events",
		ResultKey: "response",
		Params: url.Values{
			"type":            {eventType},
			"intervalInHours": {strconv.Itoa(daysIntoPast * 24)},
		},
		PageSize: auditPageSize,
	})
}
