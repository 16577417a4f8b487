package portfolio

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// FieldErrors maps a field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// ProjectFields are the client-supplied attributes of a new project.
type ProjectFields struct {
	Title         string
	Description   string
	WorkType      WorkType
	CustomerType  CustomerType
	ExecutionDate datatypes.Date
}

// ProjectPatch holds optional updates; nil means unchanged.
type ProjectPatch struct {
	Title         *string
	Description   *string
	WorkType      *WorkType
	CustomerType  *CustomerType
	ExecutionDate *datatypes.Date
}

func (p ProjectPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.WorkType == nil && p.CustomerType == nil && p.ExecutionDate == nil
}

func (f ProjectFields) Validate() error {
	fe := FieldErrors{}
	checkTitle(fe, f.Title)
	checkDescription(fe, f.Description)
	if !f.WorkType.Valid() {
		fe["workType"] = "The project requires a service category"
	}
	if !f.CustomerType.Valid() {
		fe["customerType"] = "The project requires a customer type"
	}
	if time.Time(f.ExecutionDate).IsZero() {
		fe["executionDate"] = "The project requires an execution date"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (p ProjectPatch) Validate() error {
	fe := FieldErrors{}
	if p.Title != nil {
		checkTitle(fe, *p.Title)
	}
	if p.Description != nil {
		checkDescription(fe, *p.Description)
	}
	if p.WorkType != nil && !p.WorkType.Valid() {
		fe["workType"] = "Unknown work type"
	}
	if p.CustomerType != nil && !p.CustomerType.Valid() {
		fe["customerType"] = "Unknown customer type"
	}
	if p.ExecutionDate != nil && time.Time(*p.ExecutionDate).IsZero() {
		fe["executionDate"] = "The project requires an execution date"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Apply copies the non-nil fields onto dst.
func (p ProjectPatch) Apply(dst *Project) {
	if p.Title != nil {
		dst.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		dst.Description = strings.TrimSpace(*p.Description)
	}
	if p.WorkType != nil {
		dst.WorkType = *p.WorkType
	}
	if p.CustomerType != nil {
		dst.CustomerType = *p.CustomerType
	}
	if p.ExecutionDate != nil {
		dst.ExecutionDate = *p.ExecutionDate
	}
}

func checkTitle(fe FieldErrors, title string) {
	if strings.TrimSpace(title) == "" {
		fe["title"] = "The project requires a title"
	}
}

func checkDescription(fe FieldErrors, desc string) {
	switch {
	case strings.TrimSpace(desc) == "":
		fe["description"] = "The project requires a description"
	case utf8.RuneCountInString(strings.TrimSpace(desc)) > MaxDescriptionLength:
		fe["description"] = "The description may be at most 2000 characters"
	}
}
