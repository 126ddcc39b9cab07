package anaplan

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// ID is a numeric Anaplan identifier. The API sends these as JSON strings
// or numbers depending on the endpoint; both decode.
type ID int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *ID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*i = 0
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("anaplan: identifier %s: %w", b, err)
	}

	*i = ID(n)

	return nil
}

// Workspace is an Anaplan workspace.
type Workspace struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	SizeAllowance int64  `json:"sizeAllowance"`
	CurrentSize   int64  `json:"currentSize"`
}

// Model is an Anaplan model.
type Model struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	ActiveState            string `json:"activeState"`
	LastSavedSerialNumber  int64  `json:"lastSavedSerialNumber"`
	LastModifiedByUserGUID string `json:"lastModifiedByUserGuid"`
	MemoryUsage            int64  `json:"memoryUsage"`
	WorkspaceID            string `json:"currentWorkspaceId"`
	WorkspaceName          string `json:"currentWorkspaceName"`
	URL                    string `json:"modelUrl"`
	CategoryValues         []any  `json:"categoryValues"`
	ISOCreationDate        string `json:"isoCreationDate"`
	LastModified           string `json:"lastModified"`
}

// File is a model file.
type File struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	ChunkCount   int    `json:"chunkCount"`
	Delimiter    string `json:"delimiter,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	FirstDataRow int    `json:"firstDataRow"`
	Format       string `json:"format,omitempty"`
	HeaderRow    int    `json:"headerRow"`
	Separator    string `json:"separator,omitempty"`
}

// Action is an entry under "Other Actions".
type Action struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Type string `json:"actionType,omitempty"`
}

// Process is a model process.
type Process struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Import is a model import. FileID is zero when the import reads no file.
type Import struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"importType"`
	FileID ID     `json:"importDataSourceId"`
}

// Export is a model export. Its id doubles as the id of the file it writes.
type Export struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"exportType"`
	Format   string `json:"exportFormat"`
	Encoding string `json:"encoding,omitempty"`
	Layout   string `json:"layout"`
}

// TaskSummary is one task of an action.
type TaskSummary struct {
	ID           string `json:"taskId"`
	TaskState    string `json:"taskState"`
	CreationTime int64  `json:"creationTime"`
}

// State implements api.TaskStater.
func (t TaskSummary) State() string { return t.TaskState }

// TaskResultDetail is one message of a task result.
type TaskResultDetail struct {
	LocalMessageText string    `json:"localMessageText"`
	Occurrences      int       `json:"occurrences"`
	Type             string    `json:"type"`
	Values           []*string `json:"values"`
}

// TaskResult is the outcome of a completed task.
type TaskResult struct {
	Details              []TaskResultDetail `json:"details"`
	Successful           bool               `json:"successful"`
	FailureDumpAvailable bool               `json:"failureDumpAvailable"`
	NestedResults        []TaskResult       `json:"nestedResults"`
}

// TaskStatus is the full state of a task.
type TaskStatus struct {
	TaskSummary
	Progress    float64     `json:"progress"`
	CurrentStep string      `json:"currentStep"`
	Result      *TaskResult `json:"result"`
}

// failed reports whether the task completed without success.
func (t *TaskStatus) failed() bool {
	return t.TaskState == api.TaskComplete && t.Result != nil && !t.Result.Successful
}

func (t *TaskStatus) details() []map[string]any {
	if t.Result == nil {
		return nil
	}

	out := make([]map[string]any, 0, len(t.Result.Details))
	for _, d := range t.Result.Details {
		out = append(out, map[string]any{
			"type":             d.Type,
			"localMessageText": d.LocalMessageText,
			"occurrences":      d.Occurrences,
		})
	}

	return out
}

// DimensionItem is a member of a list, subset or the users dimension.
type DimensionItem struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Module is a model module.
type Module struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// LineItem is a module line item.
type LineItem struct {
	ID             ID               `json:"id"`
	Name           string           `json:"name"`
	ModuleID       ID               `json:"moduleId"`
	ModuleName     string           `json:"moduleName"`
	Format         string           `json:"format"`
	FormatMetadata map[string]any   `json:"formatMetadata"`
	Summary        string           `json:"summary"`
	AppliesTo      []map[string]any `json:"appliesTo"`
	TimeScale      string           `json:"timeScale"`
	TimeRange      string           `json:"timeRange"`
	Version        map[string]any   `json:"version"`
	Style          string           `json:"style"`
	CellCount      int64            `json:"cellCount"`
	Notes          string           `json:"notes"`
	IsSummary      bool             `json:"isSummary"`
	Formula        string           `json:"formula"`
	FormulaScope   string           `json:"formulaScope"`
	UseSwitchover  bool             `json:"useSwitchover"`
	Breakback      bool             `json:"breakback"`
	BroughtForward bool             `json:"broughtForward"`
	StartOfSection bool             `json:"startOfSection"`
}

// List is a model list.
type List struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ListMetadata describes a list.
type ListMetadata struct {
	ID                       ID     `json:"id"`
	Name                     string `json:"name"`
	HasSelectiveAccess       bool   `json:"hasSelectiveAccess"`
	Properties               []any  `json:"properties"`
	ProductionData           bool   `json:"productionData"`
	ManagedBy                string `json:"managedBy"`
	NumberedList             bool   `json:"numberedList"`
	UseTopLevelAsPageDefault bool   `json:"useTopLevelAsPageDefault"`
	ItemCount                int    `json:"itemCount"`
	NextItemIndex            int    `json:"nextItemIndex"`
	WorkflowEnabled          bool   `json:"workflowEnabled"`
	PermittedItems           int    `json:"permittedItems"`
	UsedInAppliesTo          string `json:"usedInAppliesTo"`
}

// ListItem is an item of a list.
type ListItem struct {
	ID         ID             `json:"id"`
	Name       string         `json:"name"`
	Code       string         `json:"code,omitempty"`
	Properties map[string]any `json:"properties"`
	Subsets    map[string]any `json:"subsets"`
	Parent     string         `json:"parent,omitempty"`
	ParentID   string         `json:"parentId,omitempty"`
}

// ModelStatus is the state of the model's current request.
type ModelStatus struct {
	PeakMemoryUsageEstimate int64   `json:"peakMemoryUsageEstimate"`
	PeakMemoryUsageTime     int64   `json:"peakMemoryUsageTime"`
	Progress                float64 `json:"progress"`
	CurrentStep             string  `json:"currentStep"`
	Tooltip                 string  `json:"tooltip"`
	TaskID                  string  `json:"taskId"`
	CreationTime            int64   `json:"creationTime"`
	ExportTaskType          string  `json:"exportTaskType"`
}

// ModuleDataResult is the outcome of a module data write. Failures is set
// when the write was only partially applied.
type ModuleDataResult struct {
	CellsChanged int              `json:"numberOfCellsChanged"`
	Failures     []map[string]any `json:"failures,omitempty"`
}

// Revision is an ALM revision tag.
type Revision struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	CreatedOn      string `json:"createdOn"`
	CreatedBy      string `json:"createdBy"`
	CreationMethod string `json:"creationMethod"`
	AppliedOn      string `json:"appliedOn"`
	AppliedBy      string `json:"appliedBy"`
}

// SyncTask is an ALM synchronization task.
type SyncTask struct {
	ID           string `json:"taskId"`
	TaskState    string `json:"taskState"`
	CreationTime int64  `json:"creationTime"`
}

// State implements api.TaskStater.
func (t SyncTask) State() string { return t.TaskState }

// ModelRevision is a model a revision was applied to.
type ModelRevision struct {
	ID            string `json:"modelId"`
	Name          string `json:"modelName"`
	WorkspaceID   string `json:"workspaceId"`
	AppliedBy     string `json:"appliedBy"`
	AppliedOn     string `json:"appliedOn"`
	AppliedMethod string `json:"appliedMethod"`
	Deleted       bool   `json:"modelDeleted,omitempty"`
}

// ReportTask is a comparison report or summary task. Result is set once the
// task completes.
type ReportTask struct {
	ID           string        `json:"taskId"`
	TaskState    string        `json:"taskState"`
	CreationTime int64         `json:"creationTime"`
	Progress     float64       `json:"progress"`
	CurrentStep  string        `json:"currentStep,omitempty"`
	Result       *ReportResult `json:"result,omitempty"`
}

// State implements api.TaskStater.
func (t ReportTask) State() string { return t.TaskState }

// ReportResult identifies the revisions a report compares.
type ReportResult struct {
	Successful       bool   `json:"successful"`
	ReportFileURL    string `json:"reportFileUrl,omitempty"`
	SourceRevisionID string `json:"sourceRevisionId"`
	TargetRevisionID string `json:"targetRevisionId"`
}

// SummaryTotals counts changes between two revisions.
type SummaryTotals struct {
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
	Created  int `json:"created"`
}

// SummaryReport is the change summary between two revisions, overall and
// per entity kind.
type SummaryReport struct {
	SourceRevisionID string                   `json:"sourceRevisionId"`
	TargetRevisionID string                   `json:"targetRevisionId"`
	Totals           SummaryTotals            `json:"totals"`
	Differences      map[string]SummaryTotals `json:"differences"`
}

// Event is one audit event. Its shape varies by event type.
type Event map[string]any

// UserName is the name block of a SCIM user.
type UserName struct {
	Formatted  string `json:"formatted"`
	FamilyName string `json:"familyName"`
	GivenName  string `json:"givenName"`
}

// UserEmail is one email address of a SCIM user.
type UserEmail struct {
	Value   string `json:"value"`
	Type    string `json:"type"`
	Primary bool   `json:"primary"`
}

// Entitlement grants a SCIM user access to a workspace.
type Entitlement struct {
	Value   string `json:"value"`
	Type    string `json:"type"`
	Display string `json:"display,omitempty"`
	Primary bool   `json:"primary"`
}

// User is a SCIM user with its workspace entitlements.
type User struct {
	ID           string        `json:"id"`
	UserName     string        `json:"userName"`
	ExternalID   string        `json:"externalId,omitempty"`
	Name         UserName      `json:"name"`
	Active       bool          `json:"active"`
	Emails       []UserEmail   `json:"emails"`
	DisplayName  string        `json:"displayName"`
	Entitlements []Entitlement `json:"entitlements"`
	Meta         struct {
		ResourceType string `json:"resourceType"`
		Location     string `json:"location"`
		Created      string `json:"created"`
		LastModified string `json:"lastModified"`
	} `json:"meta"`
}

// Connection is a CloudWorks connection. Body holds the non-secret fields of
// the connection variant.
type Connection struct {
	ID                   string         `json:"connectionId"`
	Type                 string         `json:"connectionType"`
	Body                 map[string]any `json:"body"`
	CreationDate         time.Time      `json:"creationDate"`
	ModificationDate     time.Time      `json:"modificationDate"`
	CreatedBy            string         `json:"createdBy"`
	ModifiedBy           string         `json:"modifiedBy"`
	Status               int            `json:"status"`
	IntegrationErrorCode string         `json:"integrationErrorCode"`
	WorkspaceID          string         `json:"workspaceId"`
}

// LatestRun summarizes the last run of an integration.
type LatestRun struct {
	TriggeredBy        string    `json:"triggeredBy"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	ExecutionErrorCode int       `json:"executionErrorCode"`
	TriggerSource      string    `json:"triggerSource"`
}

// Schedule is the schedule attached to an integration.
type Schedule struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	FromTime    string `json:"fromTime"`
	ToTime      string `json:"toTime"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Timezone    string `json:"timezone"`
	DaysOfWeek  []int  `json:"daysOfWeek"`
	RepeatEvery int    `json:"repeatEvery"`
	Status      string `json:"status"`
}

// Integration is a CloudWorks integration. Type is empty when the
// integration was fetched individually; the API only reports it in listings.
type Integration struct {
	ID               string     `json:"integrationId"`
	Name             string     `json:"name"`
	Type             string     `json:"integrationType"`
	CreatedBy        string     `json:"createdBy"`
	CreationDate     time.Time  `json:"creationDate"`
	ModificationDate time.Time  `json:"modificationDate"`
	ModifiedBy       string     `json:"modifiedBy"`
	ModelID          string     `json:"modelId"`
	WorkspaceID      string     `json:"workspaceId"`
	NuxVisible       bool       `json:"nuxVisible"`
	ProcessID        string     `json:"processId"`
	LatestRun        *LatestRun `json:"latestRun"`
	Schedule         *Schedule  `json:"schedule"`
	NotificationID   string     `json:"notificationId"`
}

// RunStatus is the state of one integration run.
type RunStatus struct {
	ID                 string    `json:"id"`
	IntegrationID      string    `json:"integrationId"`
	TraceID            string    `json:"traceId"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	CreationDate       time.Time `json:"creationDate"`
	ModificationDate   time.Time `json:"modificationDate"`
	CreatedBy          string    `json:"createdBy"`
	ModifiedBy         string    `json:"modifiedBy"`
	ExecutionErrorCode int       `json:"executionErrorCode"`
	FlowGroupID        string    `json:"flowGroupId"`
	TriggerSource      string    `json:"triggerSource"`
}

// RunError describes why an integration run failed.
type RunError struct {
	RunID                string `json:"runId"`
	ActionID             string `json:"actionId"`
	ActionName           string `json:"actionName"`
	FailureDumpAvailable bool   `json:"failureDumpAvailable"`
	FailureDumpGenerated bool   `json:"failureDumpGenerated"`
	FailureDumpTakenDown bool   `json:"failureDumpTakenDown"`
	ErrorMessage         string `json:"errorMessage"`
}

// FlowSummary is a flow as listed.
type FlowSummary struct {
	ID               string    `json:"integrationFlowId"`
	Name             string    `json:"name"`
	CreatedBy        string    `json:"createdBy"`
	CreationDate     time.Time `json:"creationDate"`
	ModificationDate time.Time `json:"modificationDate"`
	ModifiedBy       string    `json:"modifiedBy"`
}

// FlowStep is one step of a flow.
type FlowStep struct {
	Referrer          string   `json:"referrer"`
	Name              string   `json:"name"`
	DependsOn         []string `json:"dependsOn"`
	IsSkipped         bool     `json:"isSkipped"`
	ExceptionBehavior []struct {
		Type     string `json:"type"`
		Strategy string `json:"strategy"`
	} `json:"exceptionBehavior"`
}

// Flow is a flow with its steps.
type Flow struct {
	FlowSummary
	Version    string     `json:"version"`
	NuxVisible bool       `json:"nuxVisible"`
	Steps      []FlowStep `json:"steps"`
}

// RunSummary is one entry of an integration's run history.
type RunSummary struct {
	ID                 string    `json:"id"`
	TriggeredBy        string    `json:"triggeredBy"`
	LastRun            time.Time `json:"lastRun"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	ExecutionErrorCode int       `json:"executionErrorCode"`
	TraceID            string    `json:"traceId"`
	TriggerSource      string    `json:"triggerSource"`
}
