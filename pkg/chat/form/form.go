// Package form decodes and validates the structured forms a user can submit
// from the chat window. Each intent with a form has one schema struct whose
// validate tags carry the length and format rules.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"support-chat-be/pkg/chat/chaterr"

	"github.com/go-playground/validator/v10"
)

const (
	IntentSuggestion          = "suggestion"
	IntentReportMember        = "report_member"
	IntentUsageInquiry        = "usage_inquiry"
	IntentDeleteRequest       = "delete_request"
	IntentBugReport           = "bug_report"
	IntentCommunityGuidelines = "community_guidelines"
	IntentAgentConnect        = "agent_connect"
)

// Submission is a decoded, validated form.
type Submission interface {
	Intent() string
	trim()
}

type Suggestion struct {
	Title  string `json:"title" validate:"required,max=100"`
	Detail string `json:"detail" validate:"required,min=10,max=1000"`
}

func (*Suggestion) Intent() string { return IntentSuggestion }
func (f *Suggestion) trim() {
	f.Title = strings.TrimSpace(f.Title)
	f.Detail = strings.TrimSpace(f.Detail)
}

type ReportMember struct {
	Link   string `json:"link" validate:"required,url,max=500"`
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

func (*ReportMember) Intent() string { return IntentReportMember }
func (f *ReportMember) trim() {
	f.Link = strings.TrimSpace(f.Link)
	f.Reason = strings.TrimSpace(f.Reason)
}

type UsageInquiry struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func (*UsageInquiry) Intent() string { return IntentUsageInquiry }
func (f *UsageInquiry) trim()         { f.Content = strings.TrimSpace(f.Content) }

type DeleteRequest struct {
	Link         string `json:"link" validate:"required,url,max=500"`
	Reason       string `json:"reason" validate:"required,min=10,max=500"`
	AccountState string `json:"accountState" validate:"required,oneof=active deactivated"`
}

func (*DeleteRequest) Intent() string { return IntentDeleteRequest }
func (f *DeleteRequest) trim() {
	f.Link = strings.TrimSpace(f.Link)
	f.Reason = strings.TrimSpace(f.Reason)
	f.AccountState = strings.TrimSpace(f.AccountState)
}

type BugReport struct {
	Description   string `json:"description" validate:"required,min=10,max=1000"`
	ScreenshotUrl string `json:"screenshotUrl" validate:"omitempty,url"`
}

func (*BugReport) Intent() string { return IntentBugReport }
func (f *BugReport) trim() {
	f.Description = strings.TrimSpace(f.Description)
	f.ScreenshotUrl = strings.TrimSpace(f.ScreenshotUrl)
}

// AgentConnect is the contact form shown before a live-agent handoff.
type AgentConnect struct {
	CustomerName    string `json:"customerName" validate:"required,max=50"`
	CustomerContact string `json:"customerContact" validate:"required,max=200"`
	InquiryType     string `json:"inquiryType" validate:"required,max=50"`
	Description     string `json:"description" validate:"max=1000"`
}

func (*AgentConnect) Intent() string { return IntentAgentConnect }
func (f *AgentConnect) trim() {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.CustomerContact = strings.TrimSpace(f.CustomerContact)
	f.InquiryType = strings.TrimSpace(f.InquiryType)
	f.Description = strings.TrimSpace(f.Description)
}

var schemas = map[string]func() Submission{
	IntentSuggestion:    func() Submission { return &Suggestion{} },
	IntentReportMember:  func() Submission { return &ReportMember{} },
	IntentUsageInquiry:  func() Submission { return &UsageInquiry{} },
	IntentDeleteRequest: func() Submission { return &DeleteRequest{} },
	IntentBugReport:     func() Submission { return &BugReport{} },
	IntentAgentConnect:  func() Submission { return &AgentConnect{} },
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Has reports whether intent opens a form.
func Has(intent string) bool {
	_, ok := schemas[intent]
	return ok
}

// Decode turns raw form data into the intent's schema and validates it.
// Unknown intents and rule violations both wrap chaterr.ErrValidationFailed.
func Decode(intent string, data map[string]interface{}) (Submission, error) {
	factory, ok := schemas[intent]
	if !ok {
		return nil, fmt.Errorf("form %q: %w", intent, chaterr.ErrValidationFailed)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("form %q: %w", intent, chaterr.ErrValidationFailed)
	}
	sub := factory()
	if err := json.Unmarshal(raw, sub); err != nil {
		return nil, &chaterr.ValidationError{Fields: map[string]string{"_": "malformed form data"}}
	}
	sub.trim()

	if err := validate.Struct(sub); err != nil {
		return nil, toValidationError(err)
	}
	return sub, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, chaterr.ErrValidationFailed)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = Message(fe)
	}
	return &chaterr.ValidationError{Fields: fields}
}

// Message renders a single field error for the client.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "url":
		return "invalid URL format"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
