// Package tui implements the DocStudio terminal front end: a tabbed shell
// over the dashboard, upload, chat, and settings views. All network state
// reaches the views through the query store's subscriptions and mutation
// handles; the model itself only holds presentation state.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/auth"
	"github.com/nkamath/docstudio/internal/chat"
	"github.com/nkamath/docstudio/internal/config"
	"github.com/nkamath/docstudio/internal/docfile"
	"github.com/nkamath/docstudio/internal/query"
	"github.com/nkamath/docstudio/internal/recorder"
)

// Config wires runtime collaborators into the TUI program.
type Config struct {
	Client       *api.Client
	Store        *query.Store
	Auth         *auth.Store
	Recorder     *recorder.Recorder
	Settings     *config.Config
	SettingsPath string
}

// Model is the bubbletea root model.
type Model struct {
	config Config
	jobs   *jobBus

	tab    tab
	width  int
	height int

	spinner spinner.Model

	// Shell-wide health indicator; subscribed for the whole session.
	healthSub *query.Subscription
	health    query.Snapshot

	// Dashboard subscriptions attach while the tab is visible and detach on
	// leave so polling stops with the last consumer.
	statsSub     *query.Subscription
	alertsSub    *query.Subscription
	stats        query.Snapshot
	alerts       query.Snapshot
	statsHistory []float64

	uploadInput textinput.Model
	uploads     []uploadItem
	parseMut    *query.Mutation

	chatLog        *chat.Log
	composer       textinput.Model
	chatViewport   viewport.Model
	chatDirty      bool
	pendingQueries int
	queryMut       *query.Mutation
	asrMut         *query.Mutation
	transcribing   bool

	settingsInputs [settingsFieldCount]textinput.Model
	settingsFocus  settingsField

	runningJobs int

	infoMessage  string
	errorMessage string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(cfg Config) *Model {
	composer := textinput.New()
	composer.Placeholder = "Ask about your documents…"
	composer.CharLimit = 400
	composer.Width = 70

	uploadInput := textinput.New()
	uploadInput.Placeholder = "Path to a pdf, txt, csv, or md file…"
	uploadInput.CharLimit = 300
	uploadInput.Width = 70

	var settingsInputs [settingsFieldCount]textinput.Model
	graniteInput := textinput.New()
	graniteInput.Placeholder = "Enter your Granite API key"
	graniteInput.EchoMode = textinput.EchoPassword
	graniteInput.CharLimit = 120
	graniteInput.Width = 60
	graniteInput.SetValue(cfg.Settings.Keys.GraniteAPIKey)
	settingsInputs[fieldGraniteKey] = graniteInput

	pineconeInput := textinput.New()
	pineconeInput.Placeholder = "Enter your Pinecone API key"
	pineconeInput.EchoMode = textinput.EchoPassword
	pineconeInput.CharLimit = 120
	pineconeInput.Width = 60
	pineconeInput.SetValue(cfg.Settings.Keys.PineconeAPIKey)
	settingsInputs[fieldPineconeKey] = pineconeInput

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 16)

	return &Model{
		config:         cfg,
		jobs:           newJobBus(),
		tab:            tabDashboard,
		spinner:        spin,
		uploadInput:    uploadInput,
		composer:       composer,
		chatViewport:   vp,
		chatDirty:      true,
		chatLog:        chat.NewLog(),
		parseMut:       query.NewMutation(cfg.Store, statsKey()),
		queryMut:       query.NewMutation(cfg.Store),
		asrMut:         query.NewMutation(cfg.Store),
		settingsInputs: settingsInputs,
		infoMessage:    "Tab cycles views. Ctrl+C quits.",
	}
}

func (m *Model) Init() tea.Cmd {
	m.healthSub = m.subscribeHealth()
	cmds := []tea.Cmd{
		textinput.Blink,
		waitForSnapshot(healthKey(), m.healthSub),
	}
	cmds = append(cmds, m.attachTab(m.tab)...)
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		return m, m.handleSnapshot(msg.snap)

	case subClosedMsg:
		// The consumer detached; nothing left to drain.
		return m, nil

	case jobSignalMsg:
		m.runningJobs++
		return m, m.spinner.Tick

	case jobResultEnvelope:
		if m.runningJobs > 0 {
			m.runningJobs--
		}
		if msg.Payload != nil {
			return m.Update(msg.Payload)
		}
		return m, nil

	case parseResultMsg:
		return m, m.handleParseResult(msg)

	case transcriptResultMsg:
		m.transcribing = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("transcription failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.composer.SetValue(msg.result.Transcript)
		m.composer.CursorEnd()
		m.infoMessage = fmt.Sprintf("Transcript ready (%.0f%% confidence). Enter to send.", msg.result.Confidence*100)
		return m, nil

	case answerResultMsg:
		if m.pendingQueries > 0 {
			m.pendingQueries--
		}
		if msg.err != nil {
			m.chatLog.AppendError(msg.replyTo, msg.err)
		} else {
			m.chatLog.AppendAnswer(msg.replyTo, msg.answer)
		}
		m.chatDirty = true
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("saving settings failed: %v", msg.err)
		} else {
			m.errorMessage = ""
			m.infoMessage = "Settings saved."
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		return m, tea.Batch(m.setTab((m.tab + 1) % tab(len(tabNames)))...)
	case tea.KeyShiftTab:
		return m, tea.Batch(m.setTab((m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames)))...)
	case tea.KeyCtrlO:
		m.toggleAuth()
		return m, nil
	}

	switch m.tab {
	case tabDashboard:
		return m.handleDashboardKey(msg)
	case tabUpload:
		return m.handleUploadKey(msg)
	case tabChat:
		return m.handleChatKey(msg)
	case tabSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m *Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		m.config.Store.Invalidate(statsKey())
		m.config.Store.Invalidate(alertsKey(dashboardAlertLimit, ""))
		m.infoMessage = "Refreshing dashboard…"
	}
	return m, nil
}

func (m *Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		return m, m.submitUpload()
	}
	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.submitQuestion()
	case tea.KeyCtrlR:
		return m, m.toggleRecording()
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.focusSettingsField((m.settingsFocus + settingsFieldCount - 1) % settingsFieldCount)
		return m, nil
	case tea.KeyDown:
		m.focusSettingsField((m.settingsFocus + 1) % settingsFieldCount)
		return m, nil
	case tea.KeyEnter:
		return m, m.saveSettings()
	}
	var cmd tea.Cmd
	m.settingsInputs[m.settingsFocus], cmd = m.settingsInputs[m.settingsFocus].Update(msg)
	return m, cmd
}

// submitQuestion appends the user message before the network call is issued,
// so the eventual response can only ever land after its request entry.
func (m *Model) submitQuestion() tea.Cmd {
	question := strings.TrimSpace(m.composer.Value())
	if question == "" {
		return nil
	}
	request := m.chatLog.AppendUser(question)
	m.composer.SetValue("")
	m.pendingQueries++
	m.chatDirty = true
	m.errorMessage = ""
	return tea.Batch(
		m.jobs.Start(jobKindQuery, questionJob(m.queryMut, m.config.Client, request.ID, question)),
		m.spinner.Tick,
	)
}

func (m *Model) submitUpload() tea.Cmd {
	path := strings.TrimSpace(m.uploadInput.Value())
	if path == "" {
		return nil
	}
	info, err := docfile.Inspect(path)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.uploadInput.SetValue("")
	m.errorMessage = ""
	m.uploads = append(m.uploads, uploadItem{Name: info.Name, Size: info.Size, Status: uploadPending})
	index := len(m.uploads) - 1
	m.infoMessage = fmt.Sprintf("Uploading %s…", info.Name)
	return tea.Batch(
		m.jobs.Start(jobKindParse, parseJob(m.parseMut, m.config.Client, index, info)),
		m.spinner.Tick,
	)
}

func (m *Model) toggleRecording() tea.Cmd {
	rec := m.config.Recorder
	if rec == nil {
		m.errorMessage = "voice capture is not available"
		return nil
	}
	if rec.State() == recorder.StateRecording {
		path, err := rec.Stop()
		if err != nil {
			m.errorMessage = err.Error()
			return nil
		}
		m.transcribing = true
		m.infoMessage = "Transcribing…"
		return tea.Batch(
			m.jobs.Start(jobKindTranscribe, transcribeJob(m.asrMut, m.config.Client, path, m.config.Settings.ASR.Language)),
			m.spinner.Tick,
		)
	}
	if err := rec.Start(); err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = "Recording… Ctrl+R to stop."
	return nil
}

func (m *Model) saveSettings() tea.Cmd {
	m.config.Settings.Keys.GraniteAPIKey = strings.TrimSpace(m.settingsInputs[fieldGraniteKey].Value())
	m.config.Settings.Keys.PineconeAPIKey = strings.TrimSpace(m.settingsInputs[fieldPineconeKey].Value())
	return m.jobs.Start(jobKindSettings, saveSettingsJob(m.config.SettingsPath, *m.config.Settings))
}

func (m *Model) toggleAuth() {
	if m.config.Auth == nil {
		return
	}
	if m.config.Auth.Authenticated() {
		if err := m.config.Auth.Logout(); err != nil {
			m.errorMessage = err.Error()
			return
		}
		m.infoMessage = "Signed out. Requests are now anonymous."
		return
	}
	if err := m.config.Auth.Login(); err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.infoMessage = fmt.Sprintf("Signed in as %s.", auth.DemoUser.Email)
}

func (m *Model) handleParseResult(msg parseResultMsg) tea.Cmd {
	if msg.index < 0 || msg.index >= len(m.uploads) {
		return nil
	}
	item := &m.uploads[msg.index]
	if msg.err != nil {
		item.Status = uploadFailed
		item.Err = msg.err.Error()
		m.errorMessage = fmt.Sprintf("upload failed: %v", msg.err)
		return nil
	}
	item.Status = uploadDone
	item.Document = msg.doc
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Parsed %s (file id %s).", msg.doc.Filename, msg.doc.FileID)
	return nil
}

func (m *Model) handleSnapshot(snap query.Snapshot) tea.Cmd {
	switch snap.Key {
	case statsKey():
		m.stats = snap
		if snap.Status == query.StatusSuccess {
			if stats, ok := snap.Data.(api.DashboardStats); ok {
				m.statsHistory = pushHistory(m.statsHistory, stats.AvgProcessingTime)
			}
		}
		if m.statsSub != nil {
			return waitForSnapshot(snap.Key, m.statsSub)
		}
	case alertsKey(dashboardAlertLimit, ""):
		m.alerts = snap
		if m.alertsSub != nil {
			return waitForSnapshot(snap.Key, m.alertsSub)
		}
	case healthKey():
		m.health = snap
		if m.healthSub != nil {
			return waitForSnapshot(snap.Key, m.healthSub)
		}
	}
	return nil
}

// setTab switches views, detaching the old tab's subscriptions so its
// polling stops with the last consumer, then attaching the new tab's.
func (m *Model) setTab(next tab) []tea.Cmd {
	if next == m.tab {
		return nil
	}
	m.detachTab(m.tab)
	m.tab = next
	m.errorMessage = ""
	return m.attachTab(next)
}

func (m *Model) attachTab(t tab) []tea.Cmd {
	m.uploadInput.Blur()
	m.composer.Blur()
	for i := range m.settingsInputs {
		m.settingsInputs[i].Blur()
	}

	var cmds []tea.Cmd
	switch t {
	case tabDashboard:
		m.statsSub = m.subscribeStats()
		m.alertsSub = m.subscribeAlerts()
		cmds = append(cmds,
			waitForSnapshot(statsKey(), m.statsSub),
			waitForSnapshot(alertsKey(dashboardAlertLimit, ""), m.alertsSub),
		)
	case tabUpload:
		cmds = append(cmds, m.uploadInput.Focus())
	case tabChat:
		m.chatDirty = true
		cmds = append(cmds, m.composer.Focus())
	case tabSettings:
		m.focusSettingsField(m.settingsFocus)
	}
	return cmds
}

func (m *Model) detachTab(t tab) {
	if t == tabDashboard {
		if m.statsSub != nil {
			m.statsSub.Close()
			m.statsSub = nil
		}
		if m.alertsSub != nil {
			m.alertsSub.Close()
			m.alertsSub = nil
		}
	}
}

func (m *Model) focusSettingsField(field settingsField) {
	m.settingsFocus = field
	for i := range m.settingsInputs {
		if settingsField(i) == field {
			m.settingsInputs[i].Focus()
		} else {
			m.settingsInputs[i].Blur()
		}
	}
}

func (m *Model) busy() bool {
	return m.runningJobs > 0 || m.pendingQueries > 0 || m.transcribing
}

func (m *Model) resize() {
	width := m.width - horizontalPadding
	if width < minContentWidth {
		width = minContentWidth
	}
	m.chatViewport.Width = width
	height := m.height - 12
	if height < 8 {
		height = 8
	}
	m.chatViewport.Height = height
	m.chatDirty = true
}

func pushHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}
