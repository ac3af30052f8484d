package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// finalExamSentinel is how the final exam is persisted in the module_ref column.
const finalExamSentinel = "final"

// ModuleRef identifies what an attempt lineage is for: a course module or the
// course-level final exam.
type ModuleRef struct {
	moduleID string
	final    bool
}

// FinalExam is the reference to the course-level final exam.
var FinalExam = ModuleRef{final: true}

// ModuleOf returns a reference to a regular course module.
func ModuleOf(moduleID string) ModuleRef {
	return ModuleRef{moduleID: moduleID}
}

// ParseModuleRef converts the persisted form back into a ModuleRef.
func ParseModuleRef(s string) ModuleRef {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, finalExamSentinel) {
		return FinalExam
	}
	return ModuleOf(s)
}

func (r ModuleRef) IsFinal() bool {
	return r.final
}

// ModuleID returns the module identifier, empty for the final exam.
func (r ModuleRef) ModuleID() string {
	return r.moduleID
}

func (r ModuleRef) IsZero() bool {
	return !r.final && r.moduleID == ""
}

func (r ModuleRef) String() string {
	if r.final {
		return finalExamSentinel
	}
	return r.moduleID
}

func (r ModuleRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ModuleRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("module ref must be a string: %w", err)
	}
	*r = ParseModuleRef(s)
	return nil
}

// Value implements driver.Valuer
func (r ModuleRef) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("empty module ref")
	}
	return r.String(), nil
}

// Scan implements sql.Scanner
func (r *ModuleRef) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*r = ParseModuleRef(v)
	case []byte:
		*r = ParseModuleRef(string(v))
	case nil:
		*r = ModuleRef{}
	default:
		return fmt.Errorf("cannot scan %T into ModuleRef", src)
	}
	return nil
}

func (ModuleRef) GormDataType() string {
	return "string"
}
