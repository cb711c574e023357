package host

import "github.com/mind-engage/mindengage-ltienrol/internal/validate"

// ToolInput is what an administrator supplies when creating or editing a tool.
type ToolInput struct {
	ContextID         int64  `json:"contextid" validate:"required,gt=0"`
	Name              string `json:"name" validate:"max=255"`
	CustomDescription string `json:"customdescription"`

	EnrolStartDate int64 `json:"enrolstartdate" validate:"gte=0"`
	EnrolEndDate   int64 `json:"enrolenddate" validate:"omitempty,gtefield=EnrolStartDate"`
	EnrolPeriod    int64 `json:"enrolperiod" validate:"gte=0"`
	MaxEnrolled    int   `json:"maxenrolled" validate:"gte=0"`

	RoleInstructor int64 `json:"roleinstructor" validate:"required,gt=0"`
	RoleLearner    int64 `json:"rolelearner" validate:"required,gt=0"`

	GradeSync           bool `json:"gradesync"`
	GradeSyncCompletion bool `json:"gradesynccompletion"`

	Institution string `json:"institution" validate:"max=255"`
	City        string `json:"city" validate:"max=120"`
	Country     string `json:"country" validate:"omitempty,len=2"`
	Timezone    string `json:"timezone" validate:"max=100"`
	Lang        string `json:"lang" validate:"max=30"`
	MailDisplay *int   `json:"maildisplay" validate:"omitempty,oneof=0 1 2"`
}

// DefaultToolInput returns the defaults of a freshly configured tool.
func DefaultToolInput(contextID int64) ToolInput {
	return ToolInput{
		ContextID:      contextID,
		RoleInstructor: 3,
		RoleLearner:    5,
		GradeSync:      true,
	}
}

func (in ToolInput) Validate() error { return validate.Struct(in) }

// Apply copies the input onto t, leaving identity and bookkeeping fields alone.
func (in ToolInput) Apply(t *Tool) {
	t.ContextID = in.ContextID
	t.Name = in.Name
	t.CustomDescription = in.CustomDescription
	t.EnrolStartDate = in.EnrolStartDate
	t.EnrolEndDate = in.EnrolEndDate
	t.EnrolPeriod = in.EnrolPeriod
	t.MaxEnrolled = in.MaxEnrolled
	t.RoleInstructor = in.RoleInstructor
	t.RoleLearner = in.RoleLearner
	t.GradeSync = in.GradeSync
	t.GradeSyncCompletion = in.GradeSyncCompletion
	t.Institution = in.Institution
	t.City = in.City
	t.Country = in.Country
	t.Timezone = in.Timezone
	t.Lang = in.Lang
	t.MailDisplay = in.MailDisplay
}
