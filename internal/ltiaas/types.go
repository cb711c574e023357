package ltiaas

import (
	"fmt"
	"strings"
)

// IDToken is the launch payload the remote service returns for a launch key.
type IDToken struct {
	User     User     `json:"user"`
	Platform Platform `json:"platform"`
	Launch   Launch   `json:"launch"`
	Services Services `json:"services"`
}

type User struct {
	ID         string   `json:"id"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
}

type Platform struct {
	URL          string `json:"url"`
	ClientID     string `json:"clientId"`
	DeploymentID string `json:"deploymentId"`
	Name         string `json:"name"`
}

type Launch struct {
	Type     string         `json:"type"`
	Target   string         `json:"target"`
	Context  LaunchContext  `json:"context"`
	Resource LaunchResource `json:"resource"`
	Custom   map[string]any `json:"custom"`
}

type LaunchContext struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
}

type LaunchResource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Services struct {
	ServiceKey          string `json:"serviceKey"`
	AssignmentAndGrades struct {
		Available  bool   `json:"available"`
		LineItemID string `json:"lineItemId"`
	} `json:"assignmentAndGrades"`
	DeepLinking struct {
		Available bool `json:"available"`
	} `json:"deepLinking"`
}

const (
	RoleInstructor    = "http://purl.imsglobal.org/vocab/lis/v2/membership#Instructor"
	RoleAdministrator = "http://purl.imsglobal.org/vocab/lis/v2/institution/person#Administrator"
)

// IsInstructor reports whether the user holds an instructor or
// institution administrator role.
func (t IDToken) IsInstructor() bool {
	for _, r := range t.User.Roles {
		if r == RoleInstructor || r == RoleAdministrator {
			return true
		}
	}
	return false
}

// ForceEmbed reports whether the custom_force_embed parameter equals 1.
func (t IDToken) ForceEmbed() bool {
	switch v := t.Launch.Custom["custom_force_embed"].(type) {
	case float64:
		return v == 1
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) == "1"
	default:
		return false
	}
}

// ContextKey identifies the platform context and resource of the launch.
func (t IDToken) ContextKey() string {
	if t.Launch.Context.ID == "" {
		return "unknowncontext_::" + t.Launch.Resource.ID
	}
	return t.Launch.Context.ID + "::" + t.Launch.Resource.ID
}

// Score is pushed to a platform line item.
type Score struct {
	UserID           string  `json:"userId"`
	ScoreGiven       float64 `json:"scoreGiven"`
	ScoreMaximum     float64 `json:"scoreMaximum"`
	ActivityProgress string  `json:"activityProgress"` // Initialized|Started|InProgress|Submitted|Completed
	GradingProgress  string  `json:"gradingProgress"`  // FullyGraded|Pending|PendingManual|Failed|NotReady
}

type LineItem struct {
	ID             string  `json:"id"`
	Label          string  `json:"label,omitempty"`
	ScoreMaximum   float64 `json:"scoreMaximum,omitempty"`
	ResourceLinkID string  `json:"resourceLinkId,omitempty"`
}

// ContentItem is the deep linking selection sent back to the platform.
type ContentItem struct {
	Type      string `json:"type" validate:"required,eq=ltiResourceLink"`
	URL       string `json:"url" validate:"required,url"`
	Title     string `json:"title" validate:"required"`
	Icon      *Image `json:"icon,omitempty"`
	Thumbnail *Image `json:"thumbnail,omitempty"`
}

type Image struct {
	URL    string `json:"url" validate:"required,url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Form is the remote service's deep linking response, an auto-submitting
// HTML form the browser posts back to the platform.
type Form struct {
	Form string `json:"form"`
}

// errorBody is the remote service's error envelope.
type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Details struct {
		Message string `json:"message"`
	} `json:"details"`
}

func (b errorBody) message(status int) string {
	switch {
	case b.Details.Message != "":
		return b.Details.Message
	case b.Error != "":
		return b.Error
	default:
		return fmt.Sprintf("remote returned %d", status)
	}
}
