package domain

import (
	"testing"
)

func TestStepsNavigation(t *testing.T) {
	steps := ProductSteps()

	tests := []struct {
		name     string
		step     Step
		next     Step
		prev     Step
		hasPrev  bool
		lastStep bool
	}{
		{name: "first", step: StepAddName, next: StepAddPrice},
		{name: "middle", step: StepAddPrice, next: StepAddCategory, prev: StepAddName, hasPrev: true},
		{name: "last", step: StepAddCategory, next: StepComplete, prev: StepAddPrice, hasPrev: true, lastStep: true},
		{name: "unknown", step: Step("add_weight"), next: StepComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := steps.Next(tt.step); got != tt.next {
				t.Errorf("Next(%s) = %s, want %s", tt.step, got, tt.next)
			}
			prev, ok := steps.Previous(tt.step)
			if prev != tt.prev || ok != tt.hasPrev {
				t.Errorf("Previous(%s) = %s,%v want %s,%v", tt.step, prev, ok, tt.prev, tt.hasPrev)
			}
			if got := steps.IsLast(tt.step); got != tt.lastStep {
				t.Errorf("IsLast(%s) = %v, want %v", tt.step, got, tt.lastStep)
			}
		})
	}

	if steps.First() != StepAddName || steps.Last() != StepAddCategory {
		t.Fatalf("First/Last = %s/%s", steps.First(), steps.Last())
	}
}

func TestValidationMapCheck(t *testing.T) {
	steps := ProductSteps()

	tests := []struct {
		name    string
		vm      ValidationMap
		wantErr bool
	}{
		{name: "product map", vm: ProductValidationMap()},
		{
			name: "overlap",
			vm: ValidationMap{
				StepAddName:     {FieldName, FieldPrice},
				StepAddPrice:    {FieldPrice},
				StepAddCategory: {FieldCategory},
			},
			wantErr: true,
		},
		{
			name: "gap",
			vm: ValidationMap{
				StepAddName:     {FieldName},
				StepAddPrice:    {},
				StepAddCategory: {FieldCategory},
			},
			wantErr: true,
		},
		{
			name: "missing step",
			vm: ValidationMap{
				StepAddName:  {FieldName},
				StepAddPrice: {FieldPrice, FieldCategory},
			},
			wantErr: true,
		},
		{
			name: "unknown field",
			vm: ValidationMap{
				StepAddName:     {FieldName, "weight"},
				StepAddPrice:    {FieldPrice},
				StepAddCategory: {FieldCategory},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vm.Check(steps, ProductFields)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFilterErrors(t *testing.T) {
	errs := FieldErrors{
		FieldName:     {"can't be blank"},
		FieldCategory: {"can't be blank"},
	}

	got := FilterErrors(errs, StepAddPrice, ProductValidationMap())
	if !got.Empty() {
		t.Fatalf("FilterErrors(add_price) = %v, want empty", got)
	}

	got = FilterErrors(errs, StepAddCategory, ProductValidationMap())
	if len(got) != 1 || len(got[FieldCategory]) != 1 {
		t.Fatalf("FilterErrors(add_category) = %v", got)
	}

	got[FieldCategory][0] = "mutated"
	if errs[FieldCategory][0] != "can't be blank" {
		t.Fatalf("FilterErrors shares message slices with its input")
	}
}
