package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/hperssn/productwizard/internal/domain"
	"github.com/hperssn/productwizard/internal/session"
	"github.com/hperssn/productwizard/internal/storage"
)

var ErrStepNotFound = errors.New("wizard step not found")

// DefaultNamespace is the session key the product draft lives under.
const DefaultNamespace = "product_wizard"

type Outcome int

const (
	// OutcomeRerender keeps the visitor on the submitted step.
	OutcomeRerender Outcome = iota
	OutcomeAdvance
	OutcomeComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRerender:
		return "rerender"
	case OutcomeAdvance:
		return "advance"
	case OutcomeComplete:
		return "complete"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ProductStore persists the finished record.
type ProductStore interface {
	CreateProduct(ctx context.Context, record *storage.ProductRecord) error
}

// View is what a step page needs to render.
type View struct {
	Step     domain.Step        `json:"step"`
	Previous domain.Step        `json:"previous,omitempty"`
	Next     domain.Step        `json:"next"`
	Position int                `json:"position"`
	Total    int                `json:"total"`
	Owned    []string           `json:"owned"`
	Fields   map[string]string  `json:"fields"`
	Errors   domain.FieldErrors `json:"errors,omitempty"`
}

// Result of a step submission. State is always the session state the caller
// should store next.
type Result struct {
	Outcome Outcome
	State   session.State
	Next    domain.Step
	Product domain.Product
	View    View
}

type Wizard struct {
	store       ProductStore
	steps       domain.Steps
	validations domain.ValidationMap
	namespace   string
	logger      *zap.Logger
}

type Option func(*Wizard)

// WithSteps replaces the step sequence and its validation map.
func WithSteps(steps domain.Steps, vm domain.ValidationMap) Option {
	return func(w *Wizard) {
		w.steps = steps
		w.validations = vm
	}
}

func WithNamespace(ns string) Option {
	return func(w *Wizard) {
		w.namespace = ns
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// New binds a product draft to store. The validation map must partition the
// product fields across the steps.
func New(store ProductStore, opts ...Option) (*Wizard, error) {
	w := &Wizard{
		store:       store,
		steps:       domain.ProductSteps(),
		validations: domain.ProductValidationMap(),
		namespace:   DefaultNamespace,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if store == nil {
		return nil, errors.New("wizard: product store is required")
	}
	if len(w.steps) == 0 {
		return nil, errors.New("wizard: at least one step is required")
	}
	if err := w.validations.Check(w.steps, domain.ProductFields); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wizard) Steps() domain.Steps {
	return slices.Clone(w.steps)
}

func (w *Wizard) Namespace() string {
	return w.namespace
}

// Start resets the draft and returns the step to go to.
func (w *Wizard) Start(state session.State) (session.State, domain.Step) {
	out := state.Clone()
	out[w.namespace] = domain.Product{}.Fields()

	w.logger.Debug("wizard started", zap.String("namespace", w.namespace))
	return out, w.steps.First()
}

// Show returns the draft for step. A missing draft reads as an empty one.
func (w *Wizard) Show(state session.State, step domain.Step) (View, error) {
	if !w.steps.Contains(step) {
		return View{}, ErrStepNotFound
	}

	draft := w.draft(state, step)
	return w.view(draft, nil), nil
}

// Update merges submitted into the draft and validates the fields step owns.
// state is never mutated; the returned Result carries the next state.
func (w *Wizard) Update(ctx context.Context, state session.State, step domain.Step, submitted map[string]string) (Result, error) {
	if !w.steps.Contains(step) {
		return Result{}, ErrStepNotFound
	}

	draft := w.draft(state, step)
	draft.Merge(submitted)

	if errs := draft.Validate(); !errs.Empty() {
		w.logger.Debug("step invalid",
			zap.String("step", string(step)),
			zap.Strings("fields", errs.Fields()))
		return w.rerender(state, draft, errs), nil
	}

	if !draft.IsLastStep() {
		out := state.Clone()
		out[w.namespace] = draft.Fields()

		next := w.steps.Next(step)
		w.logger.Debug("step accepted",
			zap.String("step", string(step)),
			zap.String("next", string(next)))
		return Result{Outcome: OutcomeAdvance, State: out, Next: next}, nil
	}

	return w.commit(ctx, state, draft)
}

func (w *Wizard) commit(ctx context.Context, state session.State, draft *domain.Draft) (Result, error) {
	product := draft.Record()
	if errs := domain.ValidateProduct(product); !errs.Empty() {
		w.logger.Info("product incomplete",
			zap.String("step", string(draft.Step)),
			zap.Strings("fields", errs.Fields()))
		return w.rerender(state, draft, w.incompleteErrors(errs, draft.Step)), nil
	}

	record := storage.FromDomainProduct(product)
	if err := w.store.CreateProduct(ctx, record); err != nil {
		if !errors.Is(err, storage.ErrConstraint) {
			return Result{}, fmt.Errorf("create product: %w", err)
		}

		w.logger.Info("product rejected by storage",
			zap.String("step", string(draft.Step)),
			zap.Error(err))
		return w.rerender(state, draft, w.persistenceErrors(err, draft.Step)), nil
	}

	out := state.Clone()
	delete(out, w.namespace)

	w.logger.Info("product created",
		zap.Int64("id", record.ID),
		zap.String("name", record.Name))
	return Result{
		Outcome: OutcomeComplete,
		State:   out,
		Next:    domain.StepComplete,
		Product: record.ToDomain(),
	}, nil
}

// persistenceErrors attributes a constraint violation to the failing column
// when the step owns it, otherwise to the step's first field.
func (w *Wizard) persistenceErrors(err error, step domain.Step) domain.FieldErrors {
	errs := domain.FieldErrors{}

	fields, _ := w.validations.FieldsFor(step)
	var ce *storage.ConstraintError
	if errors.As(err, &ce) && slices.Contains(fields, ce.Column) {
		errs.Add(ce.Column, "was rejected by the database")
		return errs
	}

	if len(fields) == 0 {
		errs.Add(domain.BaseField, "could not be saved")
		return errs
	}
	errs.Add(fields[0], "could not be saved")
	return domain.FilterErrors(errs, step, w.validations)
}

// incompleteErrors reports errors from earlier steps on the step's first field,
// prefixed with the field they belong to.
func (w *Wizard) incompleteErrors(errs domain.FieldErrors, step domain.Step) domain.FieldErrors {
	fields, _ := w.validations.FieldsFor(step)
	target := domain.BaseField
	if len(fields) > 0 {
		target = fields[0]
	}

	out := errs.Only(fields)
	for _, field := range errs.Fields() {
		if slices.Contains(fields, field) {
			continue
		}
		for _, msg := range errs[field] {
			out.Add(target, field+" "+msg)
		}
	}
	return out
}

func (w *Wizard) rerender(state session.State, draft *domain.Draft, errs domain.FieldErrors) Result {
	return Result{
		Outcome: OutcomeRerender,
		State:   state.Clone(),
		Next:    draft.Step,
		View:    w.view(draft, errs),
	}
}

func (w *Wizard) draft(state session.State, step domain.Step) *domain.Draft {
	return domain.NewDraft(state[w.namespace], step, w.steps, w.validations)
}

func (w *Wizard) view(draft *domain.Draft, errs domain.FieldErrors) View {
	prev, _ := w.steps.Previous(draft.Step)
	owned, _ := w.validations.FieldsFor(draft.Step)
	return View{
		Step:     draft.Step,
		Previous: prev,
		Next:     w.steps.Next(draft.Step),
		Position: w.steps.Index(draft.Step) + 1,
		Total:    len(w.steps),
		Owned:    slices.Clone(owned),
		Fields:   draft.Fields(),
		Errors:   errs,
	}
}
