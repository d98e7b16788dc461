package leaves

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/store"
	"github.com/nhle/leave-management/internal/theme"
	"github.com/nhle/leave-management/internal/ui"
)

// typesLoadedMsg delivers the leave types for the apply form.
type typesLoadedMsg struct {
	types []model.LeaveType
	err   error
}

// applyInput is a completed apply form.
type applyInput struct {
	LeaveType model.LeaveType
	Start     model.Date
	End       model.Date
	Reason    string
}

// applyCheckedMsg carries the backend's verdict on an apply form.
type applyCheckedMsg struct {
	input      applyInput
	days       float64
	sufficient bool
	err        error
}

// applyBindings holds form field values on the heap so that huh's
// Value() pointers remain valid across Bubble Tea model copies.
type applyBindings struct {
	leaveTypeID int64
	start       string
	end         string
	reason      string
}

// applyForm is the "apply for leave" huh form.
type applyForm struct {
	form   *huh.Form
	fb     *applyBindings
	types  []model.LeaveType
	width  int
	height int
}

func newApplyForm(width, height int) applyForm {
	return applyForm{fb: &applyBindings{}, width: width, height: height}
}

func (f applyForm) active() bool {
	return f.form != nil
}

func (f *applyForm) close() {
	f.form = nil
}

func (f *applyForm) setSize(width, height int) {
	f.width = width
	f.height = height
}

// open shows an empty form offering types.
func (f *applyForm) open(types []model.LeaveType) tea.Cmd {
	f.types = types
	*f.fb = applyBindings{}
	if len(types) > 0 {
		f.fb.leaveTypeID = types[0].ID
	}

	opts := make([]huh.Option[int64], len(types))
	for i, t := range types {
		opts[i] = huh.NewOption(t.Name, t.ID)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Leave Type").
				Options(opts...).
				Value(&f.fb.leaveTypeID),
			huh.NewInput().
				Title("Start Date").
				Placeholder("YYYY-MM-DD").
				Value(&f.fb.start).
				Validate(validateDate),
			huh.NewInput().
				Title("End Date").
				Placeholder("YYYY-MM-DD").
				Value(&f.fb.end).
				Validate(validateEnd(f.fb)),
			huh.NewText().
				Title("Reason").
				Placeholder("Why are you taking leave?").
				Value(&f.fb.reason).
				Validate(validateRequired("Reason")),
		),
	).WithWidth(f.formWidth()).WithHeight(f.formHeight())
	return f.form.Init()
}

// update feeds msg to the form. done is set once the form was submitted.
func (f applyForm) update(msg tea.Msg) (applyForm, tea.Cmd, *applyInput) {
	if f.form == nil {
		return f, nil, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		f.form = nil
		return f, nil, nil
	}

	mdl, cmd := f.form.Update(msg)
	if hf, ok := mdl.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		in, err := f.input()
		f.form = nil
		if err != nil {
			return f, nil, nil
		}
		return f, nil, &in
	case huh.StateAborted:
		f.form = nil
		return f, nil, nil
	}
	return f, cmd, nil
}

// input converts the bound values. Validation has already run.
func (f applyForm) input() (applyInput, error) {
	start, err := model.ParseDate(strings.TrimSpace(f.fb.start))
	if err != nil {
		return applyInput{}, err
	}
	end, err := model.ParseDate(strings.TrimSpace(f.fb.end))
	if err != nil {
		return applyInput{}, err
	}

	in := applyInput{Start: start, End: end, Reason: strings.TrimSpace(f.fb.reason)}
	for _, t := range f.types {
		if t.ID == f.fb.leaveTypeID {
			in.LeaveType = t
		}
	}
	if in.LeaveType.ID == 0 {
		return applyInput{}, errors.New("no leave type selected")
	}
	return in, nil
}

func (f applyForm) view() string {
	if f.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Apply for Leave") + "\n" + f.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

func (f applyForm) formWidth() int {
	w := f.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (f applyForm) formHeight() int {
	h := f.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// validateEnd checks the end date against the start date bound in fb.
func validateEnd(fb *applyBindings) func(string) error {
	return func(s string) error {
		if err := validateDate(s); err != nil {
			return err
		}
		start, err := model.ParseDate(strings.TrimSpace(fb.start))
		if err != nil {
			return nil
		}
		end, _ := model.ParseDate(strings.TrimSpace(s))
		if end.Before(start.Time) {
			return errors.New("end date must not be before start date")
		}
		return nil
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	if _, err := model.ParseDate(strings.TrimSpace(s)); err != nil {
		return errors.New("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// loadTypes fetches the leave types and then opens the form.
func (m Model) loadTypes() tea.Cmd {
	types := m.deps.Types
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := types.List(ctx)
		return typesLoadedMsg{types: list, err: err}
	}
}

// check asks the backend for the business-day count and the balance
// verdict of a submitted form.
func (m Model) check(in applyInput) tea.Cmd {
	svc, userID := m.deps.Service, m.userID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		days, err := svc.CalculateBusinessDays(ctx, in.Start, in.End)
		if err != nil {
			return applyCheckedMsg{input: in, err: err}
		}
		ok, err := svc.CheckBalance(ctx, userID, in.LeaveType.ID, in.Start, in.End)
		if err != nil {
			return applyCheckedMsg{input: in, err: err}
		}
		return applyCheckedMsg{input: in, days: days, sufficient: ok}
	}
}

// submit confirms a checked application with the user and creates it.
func (m Model) submit(msg applyCheckedMsg) tea.Cmd {
	deps := m.deps
	in := msg.input

	switch {
	case msg.err != nil:
		deps.Notifier.Error("Failed to submit leave application")
		return nil
	case msg.days <= 0:
		deps.Notifier.Error("The selected period contains no working days")
		return nil
	case !msg.sufficient:
		deps.Notifier.Error("Insufficient leave balance for this request")
		return nil
	}

	return func() tea.Msg {
		ok, err := deps.Confirmer.Confirm(context.Background(), confirm.Options{
			Title: "Submit leave application?",
			Message: fmt.Sprintf("%s of %s, %s.",
				ui.DaysLabel(msg.days), in.LeaveType.Name, ui.DateRange(in.Start, in.End)),
			ConfirmText: "Submit",
			Severity:    confirm.SeverityInfo,
		})
		if err != nil || !ok {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err = deps.Service.Create(ctx, model.LeaveApplicationRequest{
			LeaveType: model.LeaveTypeRef{ID: in.LeaveType.ID},
			StartDate: in.Start,
			EndDate:   in.End,
			Reason:    in.Reason,
		})
		if err != nil {
			deps.Notifier.Error("Failed to submit leave application")
			return nil
		}
		deps.Notifier.Success("Leave application submitted successfully!")
		return ChangedMsg{List: store.LeaveListMine}
	}
}
