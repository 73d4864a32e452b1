package tui

import (
	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/query"
)

type tab int

const (
	tabDashboard tab = iota
	tabUpload
	tabChat
	tabSettings
)

var tabNames = []string{"Dashboard", "Upload", "Chat", "Settings"}

const heroTagline = "Ask questions across your parsed documents."

const (
	minContentWidth   = 40
	horizontalPadding = 4
	sparklineWidth    = 30
	sparklineHeight   = 3
	historySize       = 30
)

type uploadStatus int

const (
	uploadPending uploadStatus = iota
	uploadDone
	uploadFailed
)

type uploadItem struct {
	Name     string
	Size     int64
	Status   uploadStatus
	Err      string
	Document api.ParsedDocument
}

type settingsField int

const (
	fieldGraniteKey settingsField = iota
	fieldPineconeKey
	settingsFieldCount
)

// Messages flowing through the Elm loop.

type snapshotMsg struct {
	snap query.Snapshot
}

type subClosedMsg struct {
	key query.Key
}

type parseResultMsg struct {
	index int
	doc   api.ParsedDocument
	err   error
}

type transcriptResultMsg struct {
	result api.TranscriptResult
	err    error
}

type answerResultMsg struct {
	replyTo string
	answer  api.QueryAnswer
	err     error
}

type settingsSavedMsg struct {
	err error
}
