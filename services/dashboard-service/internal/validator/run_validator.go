// services/dashboard-service/internal/validator/run_validator.go
package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

var (
	validate     *playground.Validate
	validateOnce sync.Once
)

func instance() *playground.Validate {
	validateOnce.Do(func() {
		validate = playground.New()
		validate.RegisterTagNameFunc(jsonName)
	})
	return validate
}

// ValidateRunParams checks run parameters before they are sent to the
// backend
func ValidateRunParams(params *model.RunParams) error {
	if params == nil {
		return errors.New("run parameters cannot be empty")
	}

	if err := instance().Struct(params); err != nil {
		return describe(err)
	}

	// Extra keys end up as property names, so they must be identifiers
	for key := range params.Extra {
		if key == "" || strings.ContainsAny(key, " =:\t\n") {
			return fmt.Errorf("invalid option name %q", key)
		}
	}

	return nil
}

// tagInput mirrors model.TagRequest with validation rules
type tagInput struct {
	BugID   string `json:"bug_id" validate:"required"`
	TagName string `json:"tag_name" validate:"required,max=64"`
	TagType string `json:"tag_type" validate:"required,max=32,printascii"`
}

// ValidateTag checks a tag before it is applied to a bug
func ValidateTag(bugID, tagName, tagType string) error {
	input := tagInput{BugID: bugID, TagName: tagName, TagType: tagType}
	if err := instance().Struct(input); err != nil {
		return describe(err)
	}

	// Tag types are rendered as CSS class suffixes by the dashboard
	if strings.ContainsAny(tagType, " \t\n") {
		return fmt.Errorf("tag_type must not contain whitespace, got %q", tagType)
	}
	return nil
}

// describe turns validator errors into one readable message naming the
// JSON fields
func describe(err error) error {
	var validationErrors playground.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		case "gte", "lte", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
