package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/auth"
	"github.com/nkamath/docstudio/internal/chat"
	"github.com/nkamath/docstudio/internal/query"
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	switch m.tab {
	case tabDashboard:
		b.WriteString(m.viewDashboard())
	case tabUpload:
		b.WriteString(m.viewUpload())
	case tabChat:
		b.WriteString(m.viewChat())
	case tabSettings:
		b.WriteString(m.viewSettings())
	}

	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m *Model) viewHeader() string {
	title := heroStyle.Render(" DocStudio ")
	tagline := helperStyle.Render(heroTagline)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", tagline, "  ", m.viewHealth())
}

// viewHealth renders the shell-wide backend indicator. Anything but a
// successful "healthy" snapshot shows as offline.
func (m *Model) viewHealth() string {
	if m.health.Status == query.StatusSuccess {
		if status, ok := m.health.Data.(api.HealthStatus); ok && status.Status == "healthy" {
			return onlineStyle.Render("● System Online")
		}
	}
	if m.health.Status == query.StatusIdle || (m.health.Status == query.StatusLoading && !m.health.HasData) {
		return helperStyle.Render("● Checking…")
	}
	return offlineStyle.Render("● System Offline")
}

func (m *Model) viewTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			parts = append(parts, tabActiveStyle.Render(name))
		} else {
			parts = append(parts, tabInactiveStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) viewDashboard() string {
	var b strings.Builder

	b.WriteString(sectionHeaderStyle.Render("Overview"))
	b.WriteString("\n")
	b.WriteString(m.viewStatsCards())
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render("Avg Processing Time"))
	b.WriteString("\n")
	b.WriteString(renderSparkline(m.statsHistory))
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render("Recent Alerts"))
	b.WriteString("\n")
	b.WriteString(m.viewAlerts())
	return b.String()
}

func (m *Model) viewStatsCards() string {
	if !m.stats.HasData {
		switch m.stats.Status {
		case query.StatusLoading:
			return helperStyle.Render(m.spinner.View() + " Loading stats…")
		case query.StatusError:
			return errorStyle.Render("stats unavailable: " + m.stats.Err.Error())
		default:
			return helperStyle.Render("No stats yet.")
		}
	}
	stats, ok := m.stats.Data.(api.DashboardStats)
	if !ok {
		return helperStyle.Render("No stats yet.")
	}

	cards := []string{
		statCard("Documents", fmt.Sprintf("%d", stats.TotalDocuments)),
		statCard("Queries", fmt.Sprintf("%d", stats.TotalQueries)),
		statCard("Avg Time", chat.FormatProcessingTime(stats.AvgProcessingTime)),
		statCard("Anomalies", fmt.Sprintf("%d", stats.AnomaliesDetected)),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	// Stale data stays up while a background refresh runs.
	if m.stats.Status == query.StatusLoading {
		row += "\n" + helperStyle.Render(m.spinner.View()+" refreshing…")
	} else if m.stats.Status == query.StatusError {
		row += "\n" + errorStyle.Render("refresh failed: "+m.stats.Err.Error())
	}
	return row
}

func statCard(label, value string) string {
	content := helperStyle.Render(label) + "\n" + valueStyle.Render(value)
	return cardStyle.Render(content)
}

func renderSparkline(data []float64) string {
	if len(data) == 0 {
		return helperStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}

func (m *Model) viewAlerts() string {
	if !m.alerts.HasData {
		switch m.alerts.Status {
		case query.StatusLoading:
			return helperStyle.Render(m.spinner.View() + " Loading alerts…")
		case query.StatusError:
			return errorStyle.Render("alerts unavailable: " + m.alerts.Err.Error())
		default:
			return helperStyle.Render("No alerts yet.")
		}
	}
	alerts, ok := m.alerts.Data.([]api.AnomalyAlert)
	if !ok || len(alerts) == 0 {
		return helperStyle.Render("No anomalies detected.")
	}

	sorted := make([]api.AnomalyAlert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return api.SeverityRank(sorted[i].Severity) > api.SeverityRank(sorted[j].Severity)
	})

	var b strings.Builder
	for i, alert := range sorted {
		if i > 0 {
			b.WriteString("\n")
		}
		badge := severityStyle(alert.Severity).Render(strings.ToUpper(alert.Severity))
		b.WriteString(fmt.Sprintf("%s %s %s",
			badge,
			alert.AnomalyType,
			helperStyle.Render(alert.DetectedAt.Format("Jan 2 15:04")),
		))
		b.WriteString("\n  " + alert.Description)
	}
	return b.String()
}

func (m *Model) viewUpload() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Upload a document"))
	b.WriteString("\n")
	b.WriteString(helperStyle.Render("pdf, txt, csv, or md up to 10 MB"))
	b.WriteString("\n\n")
	b.WriteString(m.uploadInput.View())
	b.WriteString("\n\n")

	if len(m.uploads) == 0 {
		b.WriteString(helperStyle.Render("Nothing uploaded this session."))
		return b.String()
	}

	b.WriteString(sectionHeaderStyle.Render("This session"))
	b.WriteString("\n")
	for _, item := range m.uploads {
		b.WriteString(renderUploadItem(item, m.spinner.View()))
		b.WriteString("\n")
	}
	return b.String()
}

func renderUploadItem(item uploadItem, spinnerFrame string) string {
	size := fmt.Sprintf("%.1f KB", float64(item.Size)/1024)
	switch item.Status {
	case uploadPending:
		return fmt.Sprintf("%s %s %s", spinnerFrame, item.Name, helperStyle.Render(size+" · parsing…"))
	case uploadFailed:
		return fmt.Sprintf("%s %s %s", errorStyle.Render("✗"), item.Name, errorStyle.Render(item.Err))
	default:
		detail := size
		if item.Document.PageCount != nil {
			detail += fmt.Sprintf(" · %d pages", *item.Document.PageCount)
		}
		if item.Document.WordCount != nil {
			detail += fmt.Sprintf(" · %d words", *item.Document.WordCount)
		}
		return fmt.Sprintf("%s %s %s", onlineStyle.Render("✓"), item.Name, helperStyle.Render(detail))
	}
}

func (m *Model) viewChat() string {
	if m.chatDirty {
		m.chatViewport.SetContent(m.renderTranscript())
		m.chatViewport.GotoBottom()
		m.chatDirty = false
	}

	var b strings.Builder
	b.WriteString(m.chatViewport.View())
	b.WriteString("\n\n")
	if m.pendingQueries > 0 {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s thinking (%d pending)…", m.spinner.View(), m.pendingQueries)))
		b.WriteString("\n")
	}
	if m.transcribing {
		b.WriteString(helperStyle.Render(m.spinner.View() + " transcribing…"))
		b.WriteString("\n")
	}
	b.WriteString(m.composer.View())
	return b.String()
}

func (m *Model) renderTranscript() string {
	width := m.chatViewport.Width
	if width < minContentWidth {
		width = minContentWidth
	}

	var b strings.Builder
	for i, msg := range m.chatLog.Messages() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderMessage(msg, width))
	}
	return b.String()
}

func renderMessage(msg chat.Message, width int) string {
	var b strings.Builder
	switch {
	case msg.Role == chat.RoleUser:
		b.WriteString(userBubbleStyle.Render("You"))
	case msg.IsError:
		b.WriteString(errorStyle.Render("DocStudio"))
	default:
		b.WriteString(assistantBubbleStyle.Render("DocStudio"))
	}
	b.WriteString(" " + helperStyle.Render(msg.Timestamp.Format("15:04")))
	b.WriteString("\n")
	b.WriteString(wordwrap.String(msg.Content, width))

	for _, src := range msg.Sources {
		b.WriteString("\n")
		b.WriteString(citationStyle.Render(fmt.Sprintf("  ↳ %s (%s)", src.Filename, chat.FormatMatch(src.SimilarityScore))))
	}
	if msg.Role == chat.RoleAssistant && !msg.IsError && msg.ProcessingTime > 0 {
		b.WriteString("\n")
		b.WriteString(helperStyle.Render("  answered in " + chat.FormatProcessingTime(msg.ProcessingTime)))
	}
	return b.String()
}

func (m *Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("API Keys"))
	b.WriteString("\n")
	b.WriteString(helperStyle.Render("Up/Down to move, Enter to save"))
	b.WriteString("\n\n")

	labels := [settingsFieldCount]string{
		fieldGraniteKey:  "Granite API key",
		fieldPineconeKey: "Pinecone API key",
	}
	for i := range m.settingsInputs {
		label := labels[i]
		if settingsField(i) == m.settingsFocus {
			b.WriteString(valueStyle.Render("> " + label))
		} else {
			b.WriteString(helperStyle.Render("  " + label))
		}
		b.WriteString("\n  ")
		b.WriteString(m.settingsInputs[i].View())
		b.WriteString("\n\n")
	}

	b.WriteString(sectionHeaderStyle.Render("Account"))
	b.WriteString("\n")
	if m.config.Auth != nil && m.config.Auth.Authenticated() {
		b.WriteString(fmt.Sprintf("Signed in as %s <%s>. Ctrl+O to sign out.", auth.DemoUser.Name, auth.DemoUser.Email))
	} else {
		b.WriteString("Not signed in. Ctrl+O to sign in as the demo user.")
	}
	return b.String()
}

func (m *Model) viewFooter() string {
	var b strings.Builder
	if m.errorMessage != "" {
		b.WriteString(errorStyle.Render(m.errorMessage))
		b.WriteString("\n")
	} else if m.infoMessage != "" {
		b.WriteString(helperStyle.Render(m.infoMessage))
		b.WriteString("\n")
	}
	b.WriteString(helperStyle.Render(footerHints(m.tab)))
	return b.String()
}

func footerHints(t tab) string {
	switch t {
	case tabDashboard:
		return "tab: switch view · r: refresh · ctrl+c: quit"
	case tabChat:
		return "tab: switch view · enter: send · ctrl+r: voice · ctrl+c: quit"
	case tabUpload:
		return "tab: switch view · enter: upload · ctrl+c: quit"
	default:
		return "tab: switch view · enter: save · ctrl+c: quit"
	}
}
