package payload

import "fmt"

// IntegrationVersion is the only integration and flow schema version.
const IntegrationVersion = "2.0"

// Endpoint is one source or target of an integration job. Which fields apply
// depends on Type: Anaplan endpoints reference an action (and, as targets,
// a file), file stores reference a connection and a file path, and BigQuery
// references a connection and a table.
type Endpoint struct {
	Type         string `json:"type"`
	ActionID     ID     `json:"actionId,omitempty"`
	FileID       ID     `json:"fileId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	File         string `json:"file,omitempty"`
	Table        string `json:"table,omitempty"`
	Overwrite    *bool  `json:"overwrite,omitempty"`
}

func (e *Endpoint) normalize(target bool) error {
	if e.Type == "" {
		switch {
		case e.ActionID != "":
			e.Type = TypeAnaplan
		case e.Table != "":
			e.Type = TypeGoogleBigQuery
		}
	}

	kind := "source"
	if target {
		kind = "target"
	}

	switch e.Type {
	case TypeAnaplan:
		fields := []field{present("actionId", string(e.ActionID))}
		if target {
			fields = append(fields, present("fileId", string(e.FileID)))
		}

		return requireFields("Anaplan "+kind, fields...)
	case TypeAmazonS3, TypeAzureBlob:
		if target && e.Overwrite == nil {
			e.Overwrite = ptr(true)
		}

		return requireFields(e.Type+" "+kind, present("connectionId", e.ConnectionID), present("file", e.File))
	case TypeGoogleBigQuery:
		if target && e.Overwrite == nil {
			e.Overwrite = ptr(false)
		}

		return requireFields(e.Type+" "+kind, present("connectionId", e.ConnectionID), present("table", e.Table))
	default:
		return oneOf(kind, "type", e.Type, TypeAnaplan, TypeAmazonS3, TypeAzureBlob, TypeGoogleBigQuery)
	}
}

// Job moves data from its sources to its targets.
type Job struct {
	Type    string     `json:"type"`
	Sources []Endpoint `json:"sources"`
	Targets []Endpoint `json:"targets"`
}

// IntegrationInput defines an integration of one or more jobs.
type IntegrationInput struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	WorkspaceID string `json:"workspaceId"`
	ModelID     string `json:"modelId"`
	ProcessID   ID     `json:"processId,omitempty"`
	NuxVisible  bool   `json:"nuxVisible"`
	Jobs        []Job  `json:"jobs"`
}

func (in *IntegrationInput) validate() error {
	if in.Version == "" {
		in.Version = IntegrationVersion
	}

	if err := requireFields("integration",
		present("name", in.Name),
		present("workspaceId", in.WorkspaceID),
		present("modelId", in.ModelID),
	); err != nil {
		return err
	}

	if in.Version != IntegrationVersion {
		return fmt.Errorf("%w: integration version %q, want %s", ErrInvalidPayload, in.Version, IntegrationVersion)
	}

	if len(in.Jobs) == 0 {
		return fmt.Errorf("%w: integration needs at least one job", ErrInvalidPayload)
	}

	for i := range in.Jobs {
		job := &in.Jobs[i]

		if err := requireFields(fmt.Sprintf("job %d", i), present("type", job.Type)); err != nil {
			return err
		}

		if len(job.Sources) == 0 || len(job.Targets) == 0 {
			return fmt.Errorf("%w: job %d needs at least one source and one target", ErrInvalidPayload, i)
		}

		for j := range job.Sources {
			if err := job.Sources[j].normalize(false); err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
		}

		for j := range job.Targets {
			if err := job.Targets[j].normalize(true); err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
		}
	}

	return nil
}

// IntegrationProcessInput wraps an existing Anaplan process as an
// integration.
type IntegrationProcessInput struct {
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
	ModelID     string `json:"modelId"`
	ProcessID   ID     `json:"processId"`
	NuxVisible  bool   `json:"nuxVisible"`
}

func (in *IntegrationProcessInput) validate() error {
	return requireFields("process integration",
		present("name", in.Name),
		present("workspaceId", in.WorkspaceID),
		present("modelId", in.ModelID),
		present("processId", string(in.ProcessID)),
	)
}

// Integration builds an integration payload. Input with jobs yields a job
// integration, anything else a process integration.
func Integration(in map[string]any) (map[string]any, error) {
	var v validator = &IntegrationProcessInput{}

	if _, ok := in["jobs"]; ok {
		v = &IntegrationInput{}
	}

	if err := decode(in, v); err != nil {
		return nil, err
	}

	return Build(v)
}

// Schedule types.
const (
	ScheduleHourly  = "hourly"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// ScheduleInput describes when an integration runs. Times are "HH:MM" in
// Timezone and dates are "YYYY-MM-DD".
type ScheduleInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Timezone    string `json:"timezone"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Time        string `json:"time,omitempty"`
	FromTime    string `json:"fromTime,omitempty"`
	ToTime      string `json:"toTime,omitempty"`
	RepeatEvery int    `json:"repeatEvery,omitempty"`
	DaysOfWeek  []int  `json:"daysOfWeek,omitempty"`
	DaysOfMonth []int  `json:"daysOfMonth,omitempty"`
}

func (s *ScheduleInput) validate() error {
	if err := requireFields("schedule",
		present("name", s.Name),
		present("type", s.Type),
		present("timezone", s.Timezone),
		present("startDate", s.StartDate),
	); err != nil {
		return err
	}

	if err := oneOf("schedule", "type", s.Type, ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly); err != nil {
		return err
	}

	if s.Type == ScheduleWeekly && len(s.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: weekly schedule needs daysOfWeek", ErrInvalidPayload)
	}

	for _, d := range s.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: day of week %d out of range 0..6", ErrInvalidPayload, d)
		}
	}

	return nil
}

// Schedule builds the {integrationId, schedule} payload.
func Schedule(integrationID string, in map[string]any) (map[string]any, error) {
	if integrationID == "" {
		return nil, fmt.Errorf("%w: schedule needs an integration id", ErrInvalidPayload)
	}

	var s ScheduleInput
	if err := decode(in, &s); err != nil {
		return nil, err
	}

	out, err := Build(&s)
	if err != nil {
		return nil, err
	}

	return map[string]any{"integrationId": integrationID, "schedule": out}, nil
}

// Notification channels and triggers.
const (
	ChannelEmail = "email"
	ChannelInApp = "in_app"

	NotifySuccess        = "success"
	NotifyPartialFailure = "partial_failure"
	NotifyFullFailure    = "full_failure"
)

// NotificationRule sends one kind of run outcome to a set of users.
type NotificationRule struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// NotificationInput configures run notifications for integrations.
type NotificationInput struct {
	IntegrationIDs []string `json:"integrationIds"`
	Channels       []string `json:"channels"`
	Notifications  struct {
		Config []NotificationRule `json:"config"`
	} `json:"notifications"`
}

func (n *NotificationInput) validate() error {
	if err := requireFields("notification",
		field{"integrationIds", len(n.IntegrationIDs) > 0},
		field{"channels", len(n.Channels) > 0},
		field{"notifications.config", len(n.Notifications.Config) > 0},
	); err != nil {
		return err
	}

	for _, c := range n.Channels {
		if err := oneOf("notification", "channel", c, ChannelEmail, ChannelInApp); err != nil {
			return err
		}
	}

	for _, r := range n.Notifications.Config {
		if err := oneOf("notification", "type", r.Type, NotifySuccess, NotifyPartialFailure, NotifyFullFailure); err != nil {
			return err
		}

		if len(r.Users) == 0 {
			return fmt.Errorf("%w: notification %s has no users", ErrInvalidPayload, r.Type)
		}
	}

	return nil
}

// Notification builds a notification configuration payload.
func Notification(in map[string]any) (map[string]any, error) {
	var n NotificationInput
	if err := decode(in, &n); err != nil {
		return nil, err
	}

	return Build(&n)
}

// Flow step limits.
const (
	MinFlowSteps = 2
	MaxFlowSteps = 100
)

// ExceptionBehavior decides what a flow does after a step outcome.
type ExceptionBehavior struct {
	Type     string `json:"type"`
	Strategy string `json:"strategy"`
}

// DefaultExceptionBehavior stops on failure and continues on partial
// success.
func DefaultExceptionBehavior() []ExceptionBehavior {
	return []ExceptionBehavior{
		{Type: "failure", Strategy: "stop"},
		{Type: "partial_success", Strategy: "continue"},
	}
}

// FlowStep runs one integration inside a flow.
type FlowStep struct {
	Type              string              `json:"type"`
	Referrer          string              `json:"referrer"`
	DependsOn         []string            `json:"dependsOn,omitempty"`
	IsSkipped         bool                `json:"isSkipped"`
	ExceptionBehavior []ExceptionBehavior `json:"exceptionBehavior"`
}

// FlowInput defines an integration flow.
type FlowInput struct {
	Name    string     `json:"name"`
	Version string     `json:"version"`
	Type    string     `json:"type"`
	Steps   []FlowStep `json:"steps"`
}

func (f *FlowInput) validate() error {
	if f.Version == "" {
		f.Version = IntegrationVersion
	}

	if f.Type == "" {
		f.Type = "IntegrationFlow"
	}

	if err := requireFields("flow", present("name", f.Name)); err != nil {
		return err
	}

	if n := len(f.Steps); n < MinFlowSteps || n > MaxFlowSteps {
		return fmt.Errorf("%w: flow has %d steps, want %d to %d", ErrInvalidPayload, n, MinFlowSteps, MaxFlowSteps)
	}

	for i := range f.Steps {
		s := &f.Steps[i]

		if s.Type == "" {
			s.Type = "Integration"
		}

		if s.ExceptionBehavior == nil {
			s.ExceptionBehavior = DefaultExceptionBehavior()
		}

		if err := requireFields(fmt.Sprintf("flow step %d", i), present("referrer", s.Referrer)); err != nil {
			return err
		}

		for _, b := range s.ExceptionBehavior {
			if err := oneOf("exception behavior", "type", b.Type, "failure", "partial_success"); err != nil {
				return err
			}

			if err := oneOf("exception behavior", "strategy", b.Strategy, "stop", "continue"); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flow builds an integration flow payload.
func Flow(in map[string]any) (map[string]any, error) {
	var f FlowInput
	if err := decode(in, &f); err != nil {
		return nil, err
	}

	return Build(&f)
}

func ptr[T any](v T) *T { return &v }
