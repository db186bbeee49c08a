package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/hperssn/productwizard/internal/domain"
	"github.com/hperssn/productwizard/internal/session"
	"github.com/hperssn/productwizard/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Create a product from the terminal",
	Long: `Walks through the same three steps as the web wizard, asking for one
field at a time. A step is asked again until its fields are valid.`,
	RunE: runTerminalWizard,
}

// askFunc prompts for one field; it is swapped out in tests.
type askFunc func(field, current string) (string, error)

func surveyAsk(field, current string) (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: fieldLabel(field) + ":",
		Default: current,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

func runTerminalWizard(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	wz, err := wizard.New(repo, wizard.WithLogger(logger.Named("wizard")))
	if err != nil {
		return err
	}

	product, err := driveWizard(cmd.Context(), wz, surveyAsk, cmd.OutOrStdout())
	if errors.Is(err, terminal.InterruptErr) {
		fmt.Fprintln(cmd.ErrOrStderr(), "aborted, nothing was saved")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created product %d: %s (%s, %s)\n",
		product.ID, product.Name, product.Price, product.Category)
	return nil
}

// driveWizard runs the wizard to completion with a private in-memory session.
func driveWizard(ctx context.Context, wz *wizard.Wizard, ask askFunc, out io.Writer) (domain.Product, error) {
	state, step := wz.Start(session.State{})

	for {
		view, err := wz.Show(state, step)
		if err != nil {
			return domain.Product{}, err
		}

		fmt.Fprintf(out, "Step %d of %d: %s\n", view.Position, view.Total, fieldLabel(string(step)))

		answers := make(map[string]string, len(view.Owned))
		for _, field := range view.Owned {
			answer, err := ask(field, view.Fields[field])
			if err != nil {
				return domain.Product{}, err
			}
			answers[field] = answer
		}

		res, err := wz.Update(ctx, state, step, answers)
		if err != nil {
			return domain.Product{}, err
		}

		switch res.Outcome {
		case wizard.OutcomeComplete:
			return res.Product, nil
		case wizard.OutcomeAdvance:
			state, step = res.State, res.Next
		default:
			for _, field := range res.View.Errors.Fields() {
				for _, msg := range res.View.Errors[field] {
					fmt.Fprintf(out, "  %s %s\n", fieldLabel(field), msg)
				}
			}
		}
	}
}

func fieldLabel(s string) string {
	s = strings.TrimPrefix(s, "add_")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
