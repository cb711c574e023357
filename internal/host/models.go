// Package host holds the records shared between the enrolment plugin and the
// host learning platform: users, contexts, enrolments and grades belong to
// the host; tools, memberships and credentials belong to the plugin.
package host

import "errors"

var ErrNotFound = errors.New("not found")

type ContextLevel int

const (
	ContextSystem ContextLevel = 10
	ContextCourse ContextLevel = 50
	ContextModule ContextLevel = 70
)

// Context is a course or a course module. For module contexts InstanceID is
// the course module id and ModName its module type (quiz, assign, ...).
type Context struct {
	ID          int64
	Level       ContextLevel
	InstanceID  int64
	CourseID    int64
	Depth       int
	ModName     string
	Name        string
	Description string
	IconURL     string
}

type Status int

const (
	StatusEnabled  Status = 0
	StatusDisabled Status = 1
)

type Tool struct {
	ID        int64
	EnrolID   int64
	ContextID int64
	CourseID  int64

	Name              string // enrolment instance name, may be empty
	CustomDescription string
	Status            Status

	EnrolStartDate int64 // unix seconds, 0 = unset
	EnrolEndDate   int64
	EnrolPeriod    int64 // seconds applied at enrol time
	MaxEnrolled    int

	RoleInstructor int64
	RoleLearner    int64

	GradeSync           bool
	GradeSyncCompletion bool

	Institution string
	City        string
	Country     string
	Timezone    string
	Lang        string
	MailDisplay *int

	TimeCreated  int64
	TimeModified int64
}

// ToolFilter selects tools. Nil fields do not filter.
type ToolFilter struct {
	Status         *Status
	CourseID       *int64
	GradeSync      *bool
	EnrolPeriodSet bool
}

func EnabledTools() ToolFilter {
	st := StatusEnabled
	return ToolFilter{Status: &st}
}

type User struct {
	ID          int64
	Username    string
	Auth        string
	FirstName   string
	LastName    string
	Email       string
	City        string
	Country     string
	Institution string
	Timezone    string
	MailDisplay int
	MNetHostID  int64
	Confirmed   bool
	Lang        string
}

// UserEnrolment is the host's record of a user enrolled through an
// enrolment instance. TimeEnd 0 means no expiry.
type UserEnrolment struct {
	ID        int64
	EnrolID   int64
	UserID    int64
	TimeStart int64
	TimeEnd   int64
}

// Membership links a local user to a tool across every platform that
// launched it.
type Membership struct {
	ID          int64
	ToolID      int64
	UserID      int64
	ExternalID  string
	LastGrade   *float64
	LastAccess  int64
	TimeCreated int64

	// Filled by listings joined with the host enrolment.
	TimeEnd int64
}

// Credential is a remote service key used to push grades for one member to
// one platform line item.
type Credential struct {
	ID           int64
	MembershipID int64
	ServiceKey   string
}

type CompletionState int

const (
	CompletionIncomplete CompletionState = 0
	CompletionComplete   CompletionState = 1
	CompletionPass       CompletionState = 2
	CompletionFail       CompletionState = 3
)

// Grade is a user's grade for one item. Max is nil when the grade row does
// not carry its item's maximum.
type Grade struct {
	Value *float64
	Max   *float64
}

type GradeItem struct {
	ID       int64
	GradeMax float64
	Grades   []Grade
}
