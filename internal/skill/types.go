package skill

import "time"

// Tool kinds resolvable by the invocation registry.
const (
	ToolKindBuiltin = "builtin"
	ToolKindCustom  = "custom"
)

// Visibility controls whether a skill is usable by other users.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// ErrorPolicy decides what the engine does when a step's tool invocation fails.
type ErrorPolicy string

const (
	// ErrorPolicyStop finalizes the run as failed and skips remaining steps.
	ErrorPolicyStop ErrorPolicy = "stop"
	// ErrorPolicyContinue records the failure and proceeds to the next step.
	ErrorPolicyContinue ErrorPolicy = "continue"
	// ErrorPolicyRetry re-invokes the tool up to MaxRetries attempts, then
	// degrades to continue semantics.
	ErrorPolicyRetry ErrorPolicy = "retry"
)

// ToolRef identifies the tool a step invokes. Kind is a free-form string at
// authoring time and is resolved through the tool registry at invocation
// time; an empty kind defaults to builtin.
type ToolRef struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Condition gates a step on a comparison against the execution context.
// Field is a path expression; when the comparison fails the step is skipped.
type Condition struct {
	Field    string      `json:"field" yaml:"field"`
	Operator string      `json:"operator" yaml:"operator"`
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// ErrorHandling is a step's failure policy. MaxRetries counts attempts
// inclusive of the first and only applies to the retry policy.
type ErrorHandling struct {
	Policy     ErrorPolicy `json:"policy" yaml:"policy"`
	MaxRetries int         `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// Step is one unit of work inside a skill. Input maps parameter names to
// either literal values or path expressions into the execution context.
type Step struct {
	ID        string                 `json:"id" yaml:"id"`
	Tool      ToolRef                `json:"tool" yaml:"tool"`
	Input     map[string]interface{} `json:"input,omitempty" yaml:"input,omitempty"`
	Condition *Condition             `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnError   ErrorHandling          `json:"on_error,omitempty" yaml:"on_error,omitempty"`
	// OutputKey optionally publishes the step's output under an extra
	// context key in addition to the step's own identifier.
	OutputKey string `json:"output_key,omitempty" yaml:"output_key,omitempty"`
}

// Skill is a named, versioned workflow owned by a user. A disabled skill
// cannot be executed but remains readable; deletion is a soft-disable so
// execution history stays intact.
type Skill struct {
	ID          string     `json:"id" yaml:"id,omitempty"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Steps       []*Step    `json:"steps" yaml:"steps"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Icon        string     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Enabled     bool       `json:"enabled" yaml:"enabled,omitempty"`
	UsageCount  int64      `json:"usage_count" yaml:"-"`
	// ClonedFrom points at the skill this one was cloned from, if any.
	ClonedFrom string    `json:"cloned_from,omitempty" yaml:"-"`
	Version    int       `json:"version" yaml:"-"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// ValidationResult is the outcome of statically checking a step list.
// Errors block creation/update; warnings are correctness hints only.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// StepStatus is the outcome of one step within a run.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult records one step's outcome inside an execution record.
type StepResult struct {
	StepID     string      `json:"step_id"`
	ToolName   string      `json:"tool_name"`
	Status     StepStatus  `json:"status"`
	Output     interface{} `json:"output,omitempty"`
	Error      string      `json:"error,omitempty"`
	Attempts   int         `json:"attempts"`
	DurationMs int64       `json:"duration_ms"`
}

// ExecutionStatus is the overall status of one run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionRecord is the durable outcome of one run. It is created when the
// run starts and finalized exactly once; the history store never mutates it
// after Append.
type ExecutionRecord struct {
	ID              string          `json:"id"`
	SkillID         string          `json:"skill_id"`
	UserID          string          `json:"user_id,omitempty"`
	Status          ExecutionStatus `json:"status"`
	Steps           []*StepResult   `json:"steps"`
	FinalOutput     interface{}     `json:"final_output,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	StepsCompleted  int             `json:"steps_completed"`
	TotalSteps      int             `json:"total_steps"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

// ExecutionResult is the caller-facing shape returned by Service.Execute.
type ExecutionResult struct {
	ExecutionID     string          `json:"execution_id"`
	Status          ExecutionStatus `json:"status"`
	StepsExecuted   []*StepResult   `json:"steps_executed"`
	FinalOutput     interface{}     `json:"final_output,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	StepsCompleted  int             `json:"steps_completed"`
	TotalSteps      int             `json:"total_steps"`
}
