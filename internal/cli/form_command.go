package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"smedge-submit/internal/form"
	"smedge-submit/internal/model"
	"smedge-submit/internal/settings"
	"smedge-submit/internal/submit"
)

type submitFunc func(context.Context) (submit.Result, error)

// staleChecker is implemented by stores that track the revision they
// loaded.
type staleChecker interface {
	Stale() (bool, error)
}

type formModel struct {
	ctx     context.Context
	store   settings.Store
	submit  submitFunc
	changes <-chan struct{}

	title  string
	fields []form.Field
	index  int
	input  textinput.Model
	width  int
	height int

	errMsg string
	status string
	busy   bool
	stale  bool

	saved     bool
	discarded bool
	result    *submit.Result
	fatalErr  error
}

type formSavedMsg struct {
	err error
}

type formSubmittedMsg struct {
	res submit.Result
	err error
}

type formReloadedMsg struct {
	cfg model.SubmissionConfig
	err error
}

type formChangedMsg struct {
	stale bool
}

type formWatchClosedMsg struct{}

var (
	manageTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	manageMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	manageErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	manageOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	managePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	manageSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	manageWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

func runForm(args []string) error {
	fs := flag.NewFlagSet("form", flag.ContinueOnError)
	config, logLevel := commonFlags(fs)
	scenePath := fs.String("scene", "", "scene file")
	settingsFile := fs.String("settings-file", "", "settings file for the file backend")
	output := fs.String("output", "", "job file directory (default: paths.job_output)")
	noMirror := fs.Bool("no-mirror", false, "skip mirroring the project on submit")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("form requires an interactive terminal (TTY)")
	}

	rt, err := loadRuntime(*config, *logLevel)
	if err != nil {
		return err
	}
	defer rt.close()

	scene, err := openScene(*scenePath)
	if err != nil {
		return err
	}
	store := rt.openStore(scene, *settingsFile)
	loaded, err := store.Load(rt.ctx)
	if err != nil {
		return err
	}

	var run submitFunc
	outputDir := defaultIfEmpty(strings.TrimSpace(*output), rt.cfg.Paths.JobOutput)
	if strings.TrimSpace(outputDir) != "" {
		fn, cleanup, err := rt.submitter(scene, store, outputDir, *noMirror, false)
		if err != nil {
			return err
		}
		defer cleanup()
		run = fn
	}

	watchCtx, cancelWatch := context.WithCancel(rt.ctx)
	defer cancelWatch()
	changes, err := settings.Watch(watchCtx, store.Path())
	if err != nil {
		rt.logger.Warn("settings watcher unavailable", "err", err)
		changes = nil
	}

	m, err := newFormModel(rt.ctx, store, loaded, run, changes)
	if err != nil {
		return err
	}
	m.title = "Smedge Submission: " + scene.ScenePath()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(rt.ctx))
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("form requires an interactive terminal (TTY)")
		}
		return err
	}
	fm, ok := finalModel.(formModel)
	if !ok {
		return nil
	}
	switch {
	case fm.fatalErr != nil:
		return fm.fatalErr
	case fm.result != nil:
		printSubmitResult(*fm.result)
	case fm.saved:
		fmt.Println("settings saved: " + store.Path())
	case fm.discarded:
		fmt.Println("changes discarded")
	}
	return nil
}

// newFormModel reflects a deep copy of cfg into a fresh field list.
func newFormModel(ctx context.Context, store settings.Store, cfg model.SubmissionConfig, run submitFunc, changes <-chan struct{}) (formModel, error) {
	working, err := form.Clone(cfg)
	if err != nil {
		return formModel{}, err
	}
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Width = clampInt(80-8, 20, 120)

	m := formModel{
		ctx:     ctx,
		store:   store,
		submit:  run,
		changes: changes,
		title:   "Smedge Submission",
		fields:  form.Reflect(working),
		input:   input,
	}
	m.loadFieldIntoInput()
	m.input.Focus()
	return m, nil
}

func (m formModel) Init() tea.Cmd {
	return waitForChangeCmd(m.changes, m.store)
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = clampInt(m.width-8, 20, 120)
		return m, nil
	case formSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = ""
			m.errMsg = describeSaveError(msg.err)
			return m, nil
		}
		m.saved = true
		return m, tea.Quit
	case formSubmittedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = ""
			m.errMsg = describeSaveError(msg.err)
			return m, nil
		}
		res := msg.res
		m.result = &res
		return m, tea.Quit
	case formReloadedMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		working, err := form.Clone(msg.cfg)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.fields = form.Reflect(working)
		m.index = clampInt(m.index, 0, maxInt(len(m.fields)-1, 0))
		m.loadFieldIntoInput()
		m.stale = false
		m.errMsg = ""
		m.status = "settings reloaded from disk"
		return m, nil
	case formChangedMsg:
		if msg.stale {
			m.stale = true
		}
		return m, waitForChangeCmd(m.changes, m.store)
	case formWatchClosedMsg:
		return m, nil
	case tea.KeyMsg:
		return m.updateForm(msg)
	}
	return m, nil
}

func (m formModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	key := strings.ToLower(msg.String())
	switch key {
	case "ctrl+c":
		m.discarded = true
		return m, tea.Quit
	case "esc", "ctrl+s":
		m.commitInput()
		cfg, err := form.Collect(m.fields)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.busy = true
		m.status = "Saving..."
		return m, saveFormCmd(m.ctx, m.store, cfg)
	case "ctrl+x":
		m.commitInput()
		if m.submit == nil {
			m.errMsg = "no job output directory configured; set paths.job_output or pass --output"
			return m, nil
		}
		cfg, err := form.Collect(m.fields)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.busy = true
		m.status = "Submitting..."
		return m, submitFormCmd(m.ctx, m.store, cfg, m.submit)
	case "ctrl+r":
		m.busy = true
		m.status = "Reloading..."
		return m, reloadFormCmd(m.ctx, m.store)
	case "up", "shift+tab":
		m.commitInput()
		if m.index > 0 {
			m.index--
		}
		m.loadFieldIntoInput()
		return m, nil
	case "down", "tab", "enter":
		m.commitInput()
		if m.index < len(m.fields)-1 {
			m.index++
		}
		m.loadFieldIntoInput()
		return m, nil
	case " ", "space", "left", "right", "h", "l":
		if m.currentField().Kind == form.FieldBool {
			m.toggleBoolField()
			return m, nil
		}
	case "y":
		if m.currentField().Kind == form.FieldBool {
			m.setBoolField(true)
			return m, nil
		}
	case "n":
		if m.currentField().Kind == form.FieldBool {
			m.setBoolField(false)
			return m, nil
		}
	}

	curr := m.currentField()
	if curr.Kind == form.FieldBool || curr.Disabled || len(m.fields) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.fields[m.index].Value = m.input.Value()
	return m, cmd
}

func describeSaveError(err error) string {
	if errors.Is(err, model.ErrStale) {
		return err.Error() + " (ctrl+r reloads, discarding your edits)"
	}
	return err.Error()
}

func (m formModel) View() string {
	header := manageTitleStyle.Render(m.title)
	hints := manageMutedStyle.Render("tab/shift+tab or up/down: move | left/right/space: toggle | y/n: set yes/no | esc/ctrl+s: save & close | ctrl+x: save & submit | ctrl+r: reload | ctrl+c: discard")

	rows := maxInt(m.height-12, 6)
	start, end := listWindow(len(m.fields), m.index, rows)
	lines := make([]string, 0, end-start+6)
	for i := start; i < end; i++ {
		f := m.fields[i]
		prefix := "  "
		if i == m.index {
			prefix = "> "
		}
		display := strings.TrimSpace(f.Value)
		if f.Kind == form.FieldBool {
			v, _ := form.ParseBool(display)
			display = yesNo(v)
		}
		if display == "" {
			display = "(empty)"
		}
		line := wrapOrTrim(fmt.Sprintf("%s%s: %s", prefix, f.Label, display), maxInt(m.width-6, 20))
		switch {
		case i == m.index:
			line = manageSelStyle.Render(line)
		case f.Disabled:
			line = manageMutedStyle.Render(line)
		}
		lines = append(lines, line)
	}

	curr := m.currentField()
	inputLabel := fmt.Sprintf("\n%s\n", curr.Label)
	inputHelp := ""
	if strings.TrimSpace(curr.Help) != "" {
		inputHelp = manageMutedStyle.Render(curr.Help) + "\n"
	}
	input := m.input.View()
	if curr.Disabled {
		input = manageMutedStyle.Render("(layer disabled; packet size is read-only)")
	}

	status := ""
	if strings.TrimSpace(m.status) != "" {
		style := manageMutedStyle
		if !m.busy {
			style = manageOKStyle
		}
		status = "\n" + style.Render(m.status)
	}
	if strings.TrimSpace(m.errMsg) != "" {
		status = "\n" + manageErrorStyle.Render(m.errMsg)
	}

	parts := []string{header, hints}
	if m.stale {
		parts = append(parts, manageWarnStyle.Render("settings changed on disk since they were loaded; saving will fail until you reload (ctrl+r)"))
	}
	panel := managePanelStyle.Width(maxInt(m.width, 40)).Render(strings.Join(lines, "\n") + inputLabel + inputHelp + input + status)
	parts = append(parts, panel)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func saveFormCmd(ctx context.Context, store settings.Store, cfg model.SubmissionConfig) tea.Cmd {
	return func() tea.Msg {
		return formSavedMsg{err: store.Save(ctx, cfg)}
	}
}

func submitFormCmd(ctx context.Context, store settings.Store, cfg model.SubmissionConfig, run submitFunc) tea.Cmd {
	return func() tea.Msg {
		if err := store.Save(ctx, cfg); err != nil {
			return formSubmittedMsg{err: err}
		}
		res, err := run(ctx)
		return formSubmittedMsg{res: res, err: err}
	}
}

func reloadFormCmd(ctx context.Context, store settings.Store) tea.Cmd {
	return func() tea.Msg {
		cfg, err := store.Load(ctx)
		return formReloadedMsg{cfg: cfg, err: err}
	}
}

// waitForChangeCmd blocks until the watcher fires and asks the store
// whether the change came from someone else.
func waitForChangeCmd(changes <-chan struct{}, store settings.Store) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return formWatchClosedMsg{}
		}
		checker, ok := store.(staleChecker)
		if !ok {
			return formChangedMsg{}
		}
		stale, err := checker.Stale()
		return formChangedMsg{stale: stale || err != nil}
	}
}

func (m *formModel) currentField() form.Field {
	if len(m.fields) == 0 {
		return form.Field{}
	}
	if m.index < 0 {
		m.index = 0
	}
	if m.index >= len(m.fields) {
		m.index = len(m.fields) - 1
	}
	return m.fields[m.index]
}

func (m *formModel) commitInput() {
	if len(m.fields) == 0 || m.fields[m.index].Disabled {
		return
	}
	m.fields[m.index].Value = strings.TrimSpace(m.input.Value())
}

func (m *formModel) loadFieldIntoInput() {
	if len(m.fields) == 0 {
		return
	}
	m.input.SetValue(m.fields[m.index].Value)
	m.input.CursorEnd()
}

func (m *formModel) toggleBoolField() {
	curr := m.currentField()
	if curr.Kind != form.FieldBool {
		return
	}
	v, ok := form.ParseBool(curr.Value)
	if !ok {
		v = false
	}
	m.setBoolField(!v)
}

func (m *formModel) setBoolField(v bool) {
	curr := m.currentField()
	if curr.Kind != form.FieldBool {
		return
	}
	curr.Value = form.FormatBool(v)
	m.fields[m.index] = curr
	if curr.Key == form.KeyLayerEnabled {
		m.fields = form.RefreshLayerDisplay(m.fields)
	}
	m.loadFieldIntoInput()
}
