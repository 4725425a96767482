package screens

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/tui/components"
)

// NewServiceSubmittedMsg carries the validated name of the new service.
type NewServiceSubmittedMsg struct {
	Name string
}

// NewServiceCancelMsg is sent when the form is dismissed.
type NewServiceCancelMsg struct{}

// NewServiceForm asks for the name of a new service using huh.
type NewServiceForm struct {
	form   *huh.Form
	done   bool
	width  int
	height int

	name string
}

// NewNewServiceForm creates the form.
func NewNewServiceForm() *NewServiceForm {
	f := &NewServiceForm{}
	f.buildForm()
	return f
}

func (f *NewServiceForm) buildForm() {
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service name").
				Description("Lowercase letters, digits and hyphens. The unit opens in your editor.").
				Placeholder("my-app").
				Value(&f.name).
				Validate(validateServiceName),
		),
	)
	f.form.WithTheme(huh.ThemeBase16())
}

func validateServiceName(name string) error {
	_, err := systemd.ValidateServiceName(name)
	return err
}

// SetSize sets the form dimensions.
func (f *NewServiceForm) SetSize(width, height int) {
	f.width = width
	f.height = height
	f.form.WithWidth(width - 4)
}

// Init initializes the form.
func (f *NewServiceForm) Init() tea.Cmd {
	return f.form.Init()
}

// Update handles form updates.
func (f *NewServiceForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if f.done {
		return f, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		f.done = true
		return f, func() tea.Msg { return NewServiceCancelMsg{} }
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		f.done = true
		name, _ := systemd.ValidateServiceName(f.name)
		return f, tea.Batch(cmd, func() tea.Msg { return NewServiceSubmittedMsg{Name: name} })
	case huh.StateAborted:
		f.done = true
		return f, func() tea.Msg { return NewServiceCancelMsg{} }
	}

	return f, cmd
}

// IsDone returns true once the form was submitted or cancelled.
func (f *NewServiceForm) IsDone() bool {
	return f.done
}

// View renders the form.
func (f *NewServiceForm) View() string {
	if f.done {
		return ""
	}

	header := lipgloss.NewStyle().
		Width(f.width).
		Align(lipgloss.Center).
		Render(components.Styles.Title.Render("Create New Service"))

	help := lipgloss.NewStyle().
		Width(f.width).
		Align(lipgloss.Center).
		Render(components.Styles.HelpText.Render("Enter: create  Esc: cancel"))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		f.form.View(),
		"",
		help,
	)
}
