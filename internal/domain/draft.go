package domain

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Draft is a Product in progress. It holds the record-shaped values plus the
// wizard metadata needed to validate one step at a time; only Product ever
// reaches storage.
type Draft struct {
	Product     Product
	Step        Step
	Steps       Steps
	Validations ValidationMap
}

// NewDraft rebuilds a draft from session fields. Nil fields give an empty draft.
func NewDraft(fields map[string]string, step Step, steps Steps, vm ValidationMap) *Draft {
	return &Draft{
		Product:     ProductFromFields(fields),
		Step:        step,
		Steps:       steps,
		Validations: vm,
	}
}

// Merge applies submitted values. Submitted keys overwrite, absent keys are
// left alone and keys outside the Product schema are dropped.
func (d *Draft) Merge(submitted map[string]string) {
	for key, value := range ExtractPersistableFields(submitted) {
		value = sanitize(value)
		switch key {
		case FieldName:
			d.Product.Name = value
		case FieldPrice:
			d.Product.Price = value
		case FieldCategory:
			d.Product.Category = value
		}
	}
}

// Validate runs full Product validation and keeps only the errors owned by
// the current step.
func (d *Draft) Validate() FieldErrors {
	return FilterErrors(ValidateProduct(d.Product), d.Step, d.Validations)
}

func (d *Draft) IsLastStep() bool {
	return d.Steps.IsLast(d.Step)
}

// Fields returns the persistable field mapping stored in the session.
func (d *Draft) Fields() map[string]string {
	return d.Product.Fields()
}

// Record returns a fresh Product built from the accessible attributes only.
func (d *Draft) Record() Product {
	return ProductFromFields(d.Fields())
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// maxUnescape bounds how many layers of entity encoding are peeled off.
const maxUnescape = 4

// sanitize decodes entities before stripping markup, so encoded tags are
// removed too. The stripped text is decoded once more for storage.
func sanitize(raw string) string {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	for range maxUnescape {
		decoded := html.UnescapeString(raw)
		if decoded == raw {
			break
		}
		raw = decoded
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(raw)))
}
