package domain

import (
	"slices"
	"sort"
)

// BaseField collects errors that do not belong to a single field.
const BaseField = "base"

// FieldErrors maps a field name to its messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	if slices.Contains(e[field], msg) {
		return
	}
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Fields returns the field names carrying errors, sorted.
func (e FieldErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Only returns a new FieldErrors holding the entries whose field is in fields.
func (e FieldErrors) Only(fields []string) FieldErrors {
	out := FieldErrors{}
	for f, msgs := range e {
		if slices.Contains(fields, f) {
			out[f] = slices.Clone(msgs)
		}
	}
	return out
}

// FilterErrors keeps the errors owned by step. A step missing from the map
// keeps every error.
func FilterErrors(errs FieldErrors, step Step, vm ValidationMap) FieldErrors {
	fields, ok := vm.FieldsFor(step)
	if !ok {
		out := FieldErrors{}
		for f, msgs := range errs {
			out[f] = slices.Clone(msgs)
		}
		return out
	}
	return errs.Only(fields)
}
