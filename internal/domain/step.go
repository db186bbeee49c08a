package domain

import (
	"fmt"
	"slices"
)

type Step string

const (
	StepAddName     Step = "add_name"
	StepAddPrice    Step = "add_price"
	StepAddCategory Step = "add_category"

	// StepComplete is the terminal state reached after the last step commits.
	StepComplete Step = "complete"
)

// Steps is the fixed, ordered step sequence of a wizard.
type Steps []Step

func ProductSteps() Steps {
	return Steps{StepAddName, StepAddPrice, StepAddCategory}
}

func (s Steps) Contains(step Step) bool {
	return slices.Contains(s, step)
}

func (s Steps) Index(step Step) int {
	return slices.Index(s, step)
}

func (s Steps) First() Step {
	if len(s) == 0 {
		return StepComplete
	}
	return s[0]
}

func (s Steps) Last() Step {
	if len(s) == 0 {
		return StepComplete
	}
	return s[len(s)-1]
}

// IsLast reports whether step is the final element of the sequence.
func (s Steps) IsLast(step Step) bool {
	return len(s) > 0 && s[len(s)-1] == step
}

// Next returns the step after step, or StepComplete when step is last.
func (s Steps) Next(step Step) Step {
	idx := s.Index(step)
	if idx < 0 || idx+1 >= len(s) {
		return StepComplete
	}
	return s[idx+1]
}

// Previous returns the step before step and false when there is none.
func (s Steps) Previous(step Step) (Step, bool) {
	idx := s.Index(step)
	if idx <= 0 {
		return "", false
	}
	return s[idx-1], true
}

// ValidationMap associates each step with the Record fields it owns.
type ValidationMap map[Step][]string

func ProductValidationMap() ValidationMap {
	return ValidationMap{
		StepAddName:     {FieldName},
		StepAddPrice:    {FieldPrice},
		StepAddCategory: {FieldCategory},
	}
}

// FieldsFor returns the fields owned by step. ok is false for steps the map
// does not know about.
func (m ValidationMap) FieldsFor(step Step) (fields []string, ok bool) {
	fields, ok = m[step]
	return fields, ok
}

// Check verifies that the steps partition recordFields: every field is owned
// by exactly one step and every step in steps has an entry.
func (m ValidationMap) Check(steps Steps, recordFields []string) error {
	owner := make(map[string]Step, len(recordFields))
	for _, step := range steps {
		fields, ok := m[step]
		if !ok {
			return fmt.Errorf("validation map: step %q has no field set", step)
		}
		for _, f := range fields {
			if !slices.Contains(recordFields, f) {
				return fmt.Errorf("validation map: step %q names unknown field %q", step, f)
			}
			if prev, dup := owner[f]; dup {
				return fmt.Errorf("validation map: field %q owned by both %q and %q", f, prev, step)
			}
			owner[f] = step
		}
	}
	for step := range m {
		if !steps.Contains(step) {
			return fmt.Errorf("validation map: step %q is not in the sequence", step)
		}
	}
	for _, f := range recordFields {
		if _, ok := owner[f]; !ok {
			return fmt.Errorf("validation map: field %q is not owned by any step", f)
		}
	}
	return nil
}
