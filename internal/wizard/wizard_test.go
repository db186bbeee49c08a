package wizard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hperssn/productwizard/internal/domain"
	"github.com/hperssn/productwizard/internal/session"
	"github.com/hperssn/productwizard/internal/storage"
	"github.com/hperssn/productwizard/internal/wizard"
)

type fakeStore struct {
	created []storage.ProductRecord
	err     error
}

func (f *fakeStore) CreateProduct(_ context.Context, record *storage.ProductRecord) error {
	if f.err != nil {
		return f.err
	}
	record.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *record)
	return nil
}

func newWizard(t *testing.T, store wizard.ProductStore) *wizard.Wizard {
	t.Helper()
	w, err := wizard.New(store)
	require.NoError(t, err)
	return w
}

func TestWizard_Start(t *testing.T) {
	w := newWizard(t, &fakeStore{})

	state, step := w.Start(session.State{"other": {"k": "v"}})

	assert.Equal(t, domain.StepAddName, step)
	assert.Equal(t, map[string]string{"name": "", "price": "", "category": ""}, state[wizard.DefaultNamespace])
	assert.Equal(t, "v", state["other"]["k"])
}

func TestWizard_ShowMissingSessionGivesEmptyDraft(t *testing.T) {
	w := newWizard(t, &fakeStore{})

	view, err := w.Show(nil, domain.StepAddPrice)
	require.NoError(t, err)

	assert.Equal(t, domain.StepAddPrice, view.Step)
	assert.Equal(t, domain.StepAddName, view.Previous)
	assert.Equal(t, domain.StepAddCategory, view.Next)
	assert.Equal(t, 2, view.Position)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, "", view.Fields["name"])
}

func TestWizard_UnknownStep(t *testing.T) {
	w := newWizard(t, &fakeStore{})
	state := session.State{wizard.DefaultNamespace: {"name": "Rye"}}

	_, err := w.Show(state, "add_weight")
	assert.ErrorIs(t, err, wizard.ErrStepNotFound)

	_, err = w.Update(context.Background(), state, "add_weight", map[string]string{"name": "x"})
	assert.ErrorIs(t, err, wizard.ErrStepNotFound)

	assert.Equal(t, session.State{wizard.DefaultNamespace: {"name": "Rye"}}, state)
}

func TestWizard_EmptyNameErrorsOnlyOnName(t *testing.T) {
	w := newWizard(t, &fakeStore{})
	state, _ := w.Start(nil)

	res, err := w.Update(context.Background(), state, domain.StepAddName, map[string]string{"name": ""})
	require.NoError(t, err)

	assert.Equal(t, wizard.OutcomeRerender, res.Outcome)
	assert.Equal(t, domain.StepAddName, res.Next)
	assert.Equal(t, domain.FieldErrors{"name": {"can't be blank"}}, res.View.Errors)
	assert.Equal(t, state, res.State)
}

func TestWizard_CompleteFlow(t *testing.T) {
	store := &fakeStore{}
	w := newWizard(t, store)
	ctx := context.Background()

	state, step := w.Start(session.State{})
	submissions := []map[string]string{
		{"name": "Sourdough"},
		{"price": "4.50"},
		{"category": "Bread", "step": "add_category"},
	}

	var res wizard.Result
	for i, fields := range submissions {
		var err error
		res, err = w.Update(ctx, state, step, fields)
		require.NoError(t, err)

		if i < len(submissions)-1 {
			require.Equal(t, wizard.OutcomeAdvance, res.Outcome, "step %s", step)
		}
		state, step = res.State, res.Next
	}

	require.Equal(t, wizard.OutcomeComplete, res.Outcome)
	require.Len(t, store.created, 1)
	assert.Equal(t, storage.ProductRecord{ID: 1, Name: "Sourdough", Price: "4.50", Category: "Bread"}, store.created[0])
	assert.Equal(t, int64(1), res.Product.ID)
	assert.Equal(t, domain.StepComplete, res.Next)

	_, ok := res.State[wizard.DefaultNamespace]
	assert.False(t, ok, "draft should be cleared after completion")
}

func TestWizard_PersistenceFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		column string
	}{
		{name: "column known", err: &storage.ConstraintError{Column: "category", Err: errors.New("check failed")}, column: "category"},
		{name: "column on another step", err: &storage.ConstraintError{Column: "name", Err: errors.New("unique")}, column: "category"},
		{name: "no column", err: &storage.ConstraintError{Err: errors.New("unique")}, column: "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.err}
			w := newWizard(t, store)

			state := session.State{wizard.DefaultNamespace: {"name": "Rye", "price": "3", "category": ""}}
			res, err := w.Update(context.Background(), state, domain.StepAddCategory, map[string]string{"category": "Bread"})
			require.NoError(t, err)

			assert.Equal(t, wizard.OutcomeRerender, res.Outcome)
			assert.Equal(t, domain.StepAddCategory, res.View.Step)
			assert.Equal(t, []string{tt.column}, res.View.Errors.Fields())
			assert.Equal(t, "Rye", res.State[wizard.DefaultNamespace]["name"])
			assert.Equal(t, "Bread", res.View.Fields["category"])
		})
	}
}

func TestWizard_LastStepRejectsIncompleteRecord(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		want  domain.FieldErrors
	}{
		{
			name:  "empty session",
			state: session.State{},
			want: domain.FieldErrors{"category": {
				"name can't be blank",
				"price can't be blank",
			}},
		},
		{
			name:  "bad price kept from earlier",
			state: session.State{wizard.DefaultNamespace: {"name": "Rye", "price": "cheap"}},
			want:  domain.FieldErrors{"category": {"price is not a valid amount"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			w := newWizard(t, store)

			res, err := w.Update(context.Background(), tt.state, domain.StepAddCategory, map[string]string{"category": "Bread"})
			require.NoError(t, err)

			assert.Equal(t, wizard.OutcomeRerender, res.Outcome)
			assert.Equal(t, domain.StepAddCategory, res.Next)
			assert.Equal(t, tt.want, res.View.Errors)
			assert.Equal(t, tt.state, res.State)
			assert.Empty(t, store.created)
		})
	}
}

func TestWizard_StorageFailurePropagates(t *testing.T) {
	w := newWizard(t, &fakeStore{err: errors.New("connection reset")})

	state := session.State{wizard.DefaultNamespace: {"name": "Rye", "price": "3"}}
	_, err := w.Update(context.Background(), state, domain.StepAddCategory, map[string]string{"category": "Bread"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConstraint)
}

func TestWizard_ResubmitPriceOnlyChangesPrice(t *testing.T) {
	w := newWizard(t, &fakeStore{})

	state := session.State{wizard.DefaultNamespace: {"name": "Rye", "price": "3", "category": "Bread"}}
	res, err := w.Update(context.Background(), state, domain.StepAddPrice, map[string]string{"price": "3.25"})
	require.NoError(t, err)

	assert.Equal(t, wizard.OutcomeAdvance, res.Outcome)
	assert.Equal(t, domain.StepAddCategory, res.Next)
	assert.Equal(t, map[string]string{"name": "Rye", "price": "3.25", "category": "Bread"}, res.State[wizard.DefaultNamespace])
	assert.Equal(t, "3", state[wizard.DefaultNamespace]["price"], "input state must not be mutated")
}

func TestWizard_LaterStepIgnoresEarlierErrors(t *testing.T) {
	w := newWizard(t, &fakeStore{})

	res, err := w.Update(context.Background(), nil, domain.StepAddPrice, map[string]string{"price": "2"})
	require.NoError(t, err)

	assert.Equal(t, wizard.OutcomeAdvance, res.Outcome)
	assert.Equal(t, "2", res.State[wizard.DefaultNamespace]["price"])
}

func TestNew_RejectsBrokenValidationMap(t *testing.T) {
	_, err := wizard.New(&fakeStore{}, wizard.WithSteps(domain.ProductSteps(), domain.ValidationMap{
		domain.StepAddName: {"name", "price", "category"},
	}))
	assert.Error(t, err)

	_, err = wizard.New(nil)
	assert.Error(t, err)
}

func TestWizard_CustomNamespace(t *testing.T) {
	w, err := wizard.New(&fakeStore{}, wizard.WithNamespace("product_builder"))
	require.NoError(t, err)

	state, _ := w.Start(nil)
	_, ok := state["product_builder"]
	assert.True(t, ok)
	assert.Equal(t, "product_builder", w.Namespace())
}
