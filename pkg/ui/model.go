package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/config"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/export"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
	"github.com/vanderheijden86/clusterview/pkg/viewstate"
	"github.com/vanderheijden86/clusterview/pkg/watcher"
)

// Default dimensions used until the terminal reports its size.
const (
	defaultWidth  = 120
	defaultHeight = 40
)

// clipboardWriteAll is swapped in tests.
var clipboardWriteAll = clipboard.WriteAll

// BundleFetchedMsg carries a settled fetch back into the event loop.
type BundleFetchedMsg struct {
	Result viewstate.FetchResult
}

// SourceChangedMsg is sent when a watched file or database changes on disk.
type SourceChangedMsg struct{}

// ExportDoneMsg reports a finished snapshot export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// FetchBundleCmd runs one fetch for req. The result carries the request's
// generation and key so the model can drop it if the view has moved on.
func FetchBundleCmd(ctx context.Context, src datasource.Source, req viewstate.FetchRequest) tea.Cmd {
	return func() tea.Msg {
		b, err := src.Fetch(ctx, req.Key)
		return BundleFetchedMsg{Result: viewstate.FetchResult{
			Generation: req.Generation,
			Key:        req.Key,
			Bundle:     b,
			Err:        err,
		}}
	}
}

// WatchSourceCmd waits for the next change of a watched source.
func WatchSourceCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return SourceChangedMsg{}
	}
}

// ExportSnapshotCmd renders a snapshot off the event loop.
func ExportSnapshotCmd(opts export.SnapshotOptions) tea.Cmd {
	return func() tea.Msg {
		err := export.SaveSnapshot(opts)
		return ExportDoneMsg{Path: opts.Path, Err: err}
	}
}

// Model is the main Bubble Tea model of the cluster view.
type Model struct {
	// Data
	source      datasource.Source
	state       viewstate.State
	ctx         context.Context
	cancelFetch context.CancelFunc
	initCmd     tea.Cmd
	watcher     *watcher.Watcher
	cfg         config.Config

	// UI Components
	slider   SliderModel
	graph    GraphModel
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	navigate NavigateModal
	theme    Theme

	showNavigate bool
	showHelp     bool
	helpText     string

	width  int
	height int

	statusMsg     string
	statusIsError bool
}

// NewModel creates the view for key and prepares its first fetch, which
// Init issues. Every fetch runs under ctx, so cancelling it aborts the
// fetch in flight.
func NewModel(ctx context.Context, src datasource.Source, key query.Key) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	theme := DefaultTheme(lipgloss.NewRenderer(os.Stdout))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	m := Model{
		source:  src,
		ctx:     ctx,
		cfg:     config.DefaultConfig(),
		slider:  NewSliderModel(theme),
		graph:   NewGraphModel(theme),
		spinner: sp,
		help:    help.New(),
		keys:    DefaultKeyMap(),
		theme:   theme,
		width:   defaultWidth,
		height:  defaultHeight,
	}

	state, req := viewstate.New(key)
	m.state = state
	m.initCmd = m.beginFetch(req)
	debug.Log("view opened for %s via %s", key, src.Describe())
	return m
}

// WithConfig applies configuration. When watching is enabled and the source
// is backed by a local path, a watcher is started for live reload.
func (m Model) WithConfig(cfg config.Config) Model {
	m.cfg = cfg
	if !cfg.Source.Watch || m.watcher != nil {
		return m
	}
	ws, ok := m.source.(datasource.Watchable)
	if !ok {
		debug.Log("source %s cannot be watched", m.source.Describe())
		return m
	}
	w, err := watcher.NewWatcher(ws.WatchPath(),
		watcher.WithDebounceDuration(watcher.DefaultDebounceDuration),
		watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
	)
	if err != nil {
		debug.Log("watcher disabled: %v", err)
		return m
	}
	if err := w.Start(); err != nil {
		debug.Log("watcher disabled: %v", err)
		return m
	}
	m.watcher = w
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.initCmd, m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, WatchSourceCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// beginFetch cancels any in-flight fetch and returns the command for req.
func (m *Model) beginFetch(req viewstate.FetchRequest) tea.Cmd {
	if m.cancelFetch != nil {
		m.cancelFetch()
		metrics.FetchesCancelled.Inc()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelFetch = cancel
	metrics.FetchesIssued.Inc()
	return FetchBundleCmd(ctx, m.source, req)
}

// navigateTo establishes key. Re-establishing the current key is a reload.
func (m *Model) navigateTo(key query.Key) tea.Cmd {
	next, eff := viewstate.Transition(m.state, viewstate.Navigated{Key: key})
	m.state = next
	m.statusMsg = ""
	m.statusIsError = false
	m.syncView()
	debug.Log("navigate %s (generation %d)", key, next.Generation)
	return tea.Batch(m.beginFetch(*eff.Fetch), m.spinner.Tick)
}

// selectThreshold applies a threshold control change. Outside Ready it is
// a no-op.
func (m *Model) selectThreshold(t threshold.Threshold) {
	if m.state.Phase != viewstate.PhaseReady {
		return
	}
	defer metrics.Timer(metrics.ThresholdSwitch)()

	next, eff := viewstate.Transition(m.state, viewstate.ThresholdChanged{Value: t})
	m.state = next
	if eff.Err != nil {
		metrics.MissingSelected.Inc()
		m.statusMsg = fmt.Sprintf("No graph at %s; staying at %s", t, m.state.Selection)
		m.statusIsError = false
		return
	}
	m.statusMsg = ""
	m.syncView()
}

// syncView pushes the state into the slider and the graph presenter.
func (m *Model) syncView() {
	m.slider.SetValue(m.state.Selection)
	if m.state.Phase != viewstate.PhaseReady {
		m.slider.SetAvailable(nil)
		m.graph.Clear()
		return
	}
	m.slider.SetAvailable(m.state.Bundle.Thresholds())
	if e, ok := m.state.Active(); ok {
		m.graph.SetEntry(m.state.Selection, e)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The navigate dialog receives every message while open so its inputs
	// keep blinking.
	if m.showNavigate {
		var cmd tea.Cmd
		m.navigate, cmd = m.navigate.Update(msg)
		cmds = append(cmds, cmd)
		switch {
		case m.navigate.IsCancelRequested():
			m.showNavigate = false
		case m.navigate.IsSubmitRequested():
			m.showNavigate = false
			cmds = append(cmds, m.navigateTo(m.navigate.Key()))
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, tea.Batch(cmds...)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.navigate.SetWidth(msg.Width)
		if m.showHelp {
			m.helpText = renderHelp(m.keys, m.width)
		}

	case spinner.TickMsg:
		// Let the tick loop lapse outside Loading; navigateTo restarts it.
		if m.state.Phase == viewstate.PhaseLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case BundleFetchedMsg:
		next, eff := viewstate.Transition(m.state, viewstate.FetchSettled{Result: msg.Result})
		if eff.Discarded {
			metrics.StaleDropped.Inc()
			debug.Log("dropped stale result for %s (generation %d, current %d)",
				msg.Result.Key, msg.Result.Generation, m.state.Generation)
			return m, tea.Batch(cmds...)
		}
		if m.cancelFetch != nil {
			m.cancelFetch()
			m.cancelFetch = nil
		}
		m.state = next
		m.syncView()
		switch next.Phase {
		case viewstate.PhaseReady:
			debug.Log("ready: %s with %d thresholds", next.Key, next.Bundle.Len())
			debug.LogIf(!next.Bundle.Complete(), "bundle for %s holds %d of %d thresholds",
				next.Key, next.Bundle.Len(), threshold.Count)
		case viewstate.PhaseNoMatch:
			debug.Log("no match for %s: %v", next.Key, next.Reason)
		}

	case SourceChangedMsg:
		debug.Log("source changed, reloading %s", m.state.Key)
		cmds = append(cmds, m.navigateTo(m.state.Key))
		m.statusMsg = "Source changed, reloading"
		if m.watcher != nil {
			cmds = append(cmds, WatchSourceCmd(m.watcher))
		}

	case ExportDoneMsg:
		if msg.Err != nil {
			m.statusMsg = "Export failed: " + msg.Err.Error()
			m.statusIsError = true
		} else {
			m.statusMsg = "Exported " + msg.Path
			m.statusIsError = false
		}

	case tea.KeyMsg:
		if m.showHelp {
			switch {
			case key.Matches(msg, m.keys.ForceQuit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.CloseModal), key.Matches(msg, m.keys.Quit):
				m.showHelp = false
			}
			return m, nil
		}
		cmds = append(cmds, m.handleKeys(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpText = renderHelp(m.keys, m.width)

	case key.Matches(msg, m.keys.Navigate):
		m.navigate = NewNavigateModal(m.state.Key, m.theme)
		m.navigate.SetWidth(m.width)
		m.showNavigate = true
		return textinput.Blink

	case key.Matches(msg, m.keys.Reload):
		return m.navigateTo(m.state.Key)

	case key.Matches(msg, m.keys.Copy):
		loc := "?" + m.state.Key.Encode()
		if err := clipboardWriteAll(loc); err != nil {
			m.statusMsg = "Clipboard error: " + err.Error()
			m.statusIsError = true
		} else {
			m.statusMsg = "Copied " + loc
			m.statusIsError = false
		}

	case key.Matches(msg, m.keys.Export):
		return m.exportCurrent()

	case key.Matches(msg, m.keys.Lower):
		m.selectThreshold(m.state.Selection.Prev())
	case key.Matches(msg, m.keys.Higher):
		m.selectThreshold(m.state.Selection.Next())
	case key.Matches(msg, m.keys.First):
		m.selectThreshold(threshold.Min)
	case key.Matches(msg, m.keys.Last):
		m.selectThreshold(threshold.Max)
	case key.Matches(msg, m.keys.Jump):
		if t, ok := digitThreshold(msg.String()); ok {
			m.selectThreshold(t)
		}

	case key.Matches(msg, m.keys.PrevGroup):
		m.graph.MoveUp()
	case key.Matches(msg, m.keys.NextGroup):
		m.graph.MoveDown()
	}
	return nil
}

// exportCurrent writes the displayed pair to the configured export dir.
func (m *Model) exportCurrent() tea.Cmd {
	entry, ok := m.state.Active()
	if !ok {
		m.statusMsg = "Nothing to export"
		m.statusIsError = true
		return nil
	}
	format := m.cfg.Export.Format
	if format == "" {
		format = "svg"
	}
	path := filepath.Join(m.cfg.Export.Dir, export.SnapshotFileName(m.state.Key, m.state.Selection, format))
	m.statusMsg = "Exporting " + path
	m.statusIsError = false
	return ExportSnapshotCmd(export.SnapshotOptions{
		Path:      path,
		Format:    format,
		Title:     m.state.Key.Title(),
		Threshold: m.state.Selection,
		Entry:     entry,
	})
}

func (m Model) View() string {
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case m.showNavigate:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.navigate.View())
	case m.showHelp:
		body = m.renderHelpOverlay()
		return lipgloss.NewStyle().Width(m.width).MaxHeight(m.height).Render(body)
	case m.state.Phase == viewstate.PhaseLoading:
		body = m.renderLoading(bodyHeight)
	case m.state.Phase == viewstate.PhaseNoMatch:
		body = m.renderNoMatch(bodyHeight)
	default:
		body = m.renderReady(bodyHeight)
	}

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		MaxHeight(m.height)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
}

func (m Model) renderHeader() string {
	k := m.state.Key
	title := RenderTitle(m.theme, k.Base1, k.Base2, k.Target1, k.Target2)
	src := m.theme.MutedText.Render(truncate(m.source.Describe(), max(m.width/3, 10)))
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(src), 1)
	return title + strings.Repeat(" ", gap) + src + "\n" + RenderDivider(m.width)
}

func (m Model) renderLoading(height int) string {
	t := m.theme
	lines := []string{
		m.spinner.View() + " " + t.Text.Bold(true).Render("Loading clusters..."),
		"",
		t.MutedText.Render(m.source.Describe()),
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderNoMatch(height int) string {
	t := m.theme
	lines := []string{t.Renderer.NewStyle().Bold(true).Foreground(t.Target).Render("No Match found")}
	if r := m.state.Reason; r != nil && !errors.Is(r, viewstate.ErrEmptyResult) {
		lines = append(lines, "", t.MutedText.Render(truncate(r.Error(), max(m.width-4, 10))))
	}
	lines = append(lines, "", RenderKeyHint(t, "/", "new query")+"  "+RenderKeyHint(t, "r", "retry"))
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderReady(height int) string {
	slider := m.slider.View(m.width)
	graphHeight := max(height-lipgloss.Height(slider)-1, 3)
	return lipgloss.JoinVertical(lipgloss.Left, slider, "", m.graph.View(m.width, graphHeight))
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		style := t.WarningText
		if m.statusIsError {
			style = t.Renderer.NewStyle().Foreground(t.Danger)
		}
		return style.Render(truncate(m.statusMsg, m.width))
	}
	if w := m.state.Warning; w != nil && errors.Is(w, bundle.ErrMissingThreshold) {
		return t.WarningText.Render(truncate(w.Error(), m.width))
	}
	if !m.cfg.UI.ShowHelp {
		return ""
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// Stop cancels the in-flight fetch and stops the watcher.
func (m *Model) Stop() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// State returns the current view state.
func (m Model) State() viewstate.State { return m.state }

// Graph returns the graph presenter.
func (m Model) Graph() GraphModel { return m.graph }

// Slider returns the threshold control.
func (m Model) Slider() SliderModel { return m.slider }

// StatusMessage returns the footer message and whether it is an error.
func (m Model) StatusMessage() (string, bool) { return m.statusMsg, m.statusIsError }

// ShowingHelp reports whether the help overlay is open.
func (m Model) ShowingHelp() bool { return m.showHelp }

// ShowingNavigate reports whether the navigate dialog is open.
func (m Model) ShowingNavigate() bool { return m.showNavigate }

// Watching reports whether a watcher is active.
func (m Model) Watching() bool { return m.watcher != nil }
