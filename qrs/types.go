package qrs

// Wire types for the QSEoW Repository Service (QRS) REST API.
//
// Timestamps stay as strings end to end. QRS uses two sentinel values that
// must survive a round trip untouched: "1753-01-01T00:00:00.000Z" (never)
// and "9999-01-01T00:00:00.000Z" (no expiration).

// Timestamp sentinels used by QRS
const (
	TimestampNever        = "1753-01-01T00:00:00.000Z"
	TimestampNoExpiration = "9999-01-01T00:00:00.000Z"
)

// Task type discriminator used by /qrs/task endpoints
const (
	TaskTypeReload          = 0
	TaskTypeExternalProgram = 1
)

// Schema event incrementOption values
const (
	IncrementOnce    = 0
	IncrementHourly  = 1
	IncrementDaily   = 2
	IncrementWeekly  = 3
	IncrementMonthly = 4
	IncrementCustom  = 5
)

// Schema event daylightSavingTime values
const (
	DaylightObserve           = 0
	DaylightPermanentStandard = 1
	DaylightPermanentDaylight = 2
)

// Composite rule ruleState values
const (
	RuleStateTaskSuccessful = 1
	RuleStateTaskFail       = 2
)

// Event type discriminator on schema/composite events
const (
	EventTypeSchema    = 0
	EventTypeComposite = 1
)

// Tag is a server-wide label attachable to tasks and apps
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CustomPropertyDefinition is a server-wide key with a declared choice set
type CustomPropertyDefinition struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	ChoiceValues []string `json:"choiceValues,omitempty"`
	ObjectTypes  []string `json:"objectTypes,omitempty"`
}

// CustomPropertyValue binds one value of a definition's choice set to an object
type CustomPropertyValue struct {
	ID         string                   `json:"id,omitempty"`
	Definition CustomPropertyDefinition `json:"definition"`
	Value      string                   `json:"value"`
}

// Stream is a publication target for apps
type Stream struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// User identifies a Sense user by directory and id
type User struct {
	ID            string `json:"id,omitempty"`
	UserDirectory string `json:"userDirectory"`
	UserID        string `json:"userId"`
	Name          string `json:"name,omitempty"`
}

// App is the QRS projection of a Sense application
type App struct {
	ID               string                `json:"id,omitempty"`
	Name             string                `json:"name"`
	Published        bool                  `json:"published,omitempty"`
	Stream           *Stream               `json:"stream,omitempty"`
	Owner            *User                 `json:"owner,omitempty"`
	Tags             []Tag                 `json:"tags,omitempty"`
	CustomProperties []CustomPropertyValue `json:"customProperties,omitempty"`
}

// TaskCondensed is the reference shape QRS embeds inside events and rules
type TaskCondensed struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// TimeConstraint is the sliding window of a composite event. All fields
// zero means the event fires as soon as its rule list is satisfied; the
// value is passed to QRS verbatim either way.
type TimeConstraint struct {
	Seconds int `json:"seconds"`
	Minutes int `json:"minutes"`
	Hours   int `json:"hours"`
	Days    int `json:"days"`
}

// SchemaEvent is a time-based trigger owned by exactly one task
type SchemaEvent struct {
	ID                      string         `json:"id,omitempty"`
	Name                    string         `json:"name"`
	Enabled                 bool           `json:"enabled"`
	EventType               int            `json:"eventType"`
	IncrementOption         int            `json:"incrementOption"`
	IncrementDescription    string         `json:"incrementDescription"`
	DaylightSavingTime      int            `json:"daylightSavingTime"`
	StartDate               string         `json:"startDate"`
	ExpirationDate          string         `json:"expirationDate"`
	SchemaFilterDescription []string       `json:"schemaFilterDescription"`
	TimeZone                string         `json:"timeZone"`
	ReloadTask              *TaskCondensed `json:"reloadTask,omitempty"`
	ExternalProgramTask     *TaskCondensed `json:"externalProgramTask,omitempty"`
}

// CompositeRule is one conjunct of a composite event: upstream task plus
// the terminal state it must reach
type CompositeRule struct {
	ID                  string         `json:"id,omitempty"`
	RuleState           int            `json:"ruleState"`
	ReloadTask          *TaskCondensed `json:"reloadTask,omitempty"`
	ExternalProgramTask *TaskCondensed `json:"externalProgramTask,omitempty"`
}

// CompositeEvent is a dependency-based trigger owned by exactly one
// downstream task
type CompositeEvent struct {
	ID                  string          `json:"id,omitempty"`
	Name                string          `json:"name"`
	Enabled             bool            `json:"enabled"`
	EventType           int             `json:"eventType"`
	TimeConstraint      TimeConstraint  `json:"timeConstraint"`
	CompositeRules      []CompositeRule `json:"compositeRules"`
	ReloadTask          *TaskCondensed  `json:"reloadTask,omitempty"`
	ExternalProgramTask *TaskCondensed  `json:"externalProgramTask,omitempty"`
}

// OperationalState carries last/next execution details for table output
type OperationalState struct {
	ID                  string               `json:"id,omitempty"`
	NextExecution       string               `json:"nextExecution,omitempty"`
	LastExecutionResult *LastExecutionResult `json:"lastExecutionResult,omitempty"`
}

// LastExecutionResult is the most recent execution summary of a task
type LastExecutionResult struct {
	ID                string `json:"id,omitempty"`
	Status            int    `json:"status"`
	StartTime         string `json:"startTime,omitempty"`
	StopTime          string `json:"stopTime,omitempty"`
	Duration          int    `json:"duration,omitempty"`
	ExecutingNodeName string `json:"executingNodeName,omitempty"`
}

// ReloadTask is a QSEoW reload task
type ReloadTask struct {
	ID                  string                `json:"id,omitempty"`
	Name                string                `json:"name"`
	TaskType            int                   `json:"taskType"`
	Enabled             bool                  `json:"enabled"`
	TaskSessionTimeout  int                   `json:"taskSessionTimeout"`
	MaxRetries          int                   `json:"maxRetries"`
	App                 *App                  `json:"app,omitempty"`
	IsPartialReload     bool                  `json:"isPartialReload"`
	IsManuallyTriggered bool                  `json:"isManuallyTriggered"`
	Tags                []Tag                 `json:"tags,omitempty"`
	CustomProperties    []CustomPropertyValue `json:"customProperties,omitempty"`
	Operational         *OperationalState     `json:"operational,omitempty"`
}

// ExternalProgramTask runs an arbitrary command on a Sense node
type ExternalProgramTask struct {
	ID                 string                `json:"id,omitempty"`
	Name               string                `json:"name"`
	TaskType           int                   `json:"taskType"`
	Enabled            bool                  `json:"enabled"`
	TaskSessionTimeout int                   `json:"taskSessionTimeout"`
	MaxRetries         int                   `json:"maxRetries"`
	Path               string                `json:"path"`
	Parameters         string                `json:"parameters"`
	Tags               []Tag                 `json:"tags,omitempty"`
	CustomProperties   []CustomPropertyValue `json:"customProperties,omitempty"`
	Operational        *OperationalState     `json:"operational,omitempty"`
}

// ReloadTaskCreate is the envelope accepted by /qrs/reloadtask/create.
// Schema events ride along atomically with the task; composite events are
// always created in a later pass once their upstream tasks exist.
type ReloadTaskCreate struct {
	Task            ReloadTask       `json:"task"`
	SchemaEvents    []SchemaEvent    `json:"schemaEvents"`
	CompositeEvents []CompositeEvent `json:"compositeEvents"`
}

// ExternalProgramTaskCreate is the envelope for /qrs/externalprogramtask/create
type ExternalProgramTaskCreate struct {
	Task            ExternalProgramTask `json:"task"`
	SchemaEvents    []SchemaEvent       `json:"schemaEvents"`
	CompositeEvents []CompositeEvent    `json:"compositeEvents"`
}
