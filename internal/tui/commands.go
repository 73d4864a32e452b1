package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/config"
	"github.com/nkamath/docstudio/internal/docfile"
	"github.com/nkamath/docstudio/internal/query"
)

func parseJob(mutation *query.Mutation, client *api.Client, index int, info docfile.Info) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		data, err := mutation.Do(parent, func(ctx context.Context) (any, error) {
			file, err := os.Open(info.Path)
			if err != nil {
				return nil, err
			}
			defer file.Close()
			return client.ParseDocument(ctx, info.Name, file)
		})
		if err != nil {
			return parseResultMsg{index: index, err: err}, err
		}
		doc, _ := data.(api.ParsedDocument)
		return parseResultMsg{index: index, doc: doc}, nil
	}
}

func transcribeJob(mutation *query.Mutation, client *api.Client, audioPath, language string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		defer os.Remove(audioPath)
		data, err := mutation.Do(parent, func(ctx context.Context) (any, error) {
			file, err := os.Open(audioPath)
			if err != nil {
				return nil, err
			}
			defer file.Close()
			return client.SpeechToText(ctx, "recording.wav", file, language)
		})
		if err != nil {
			return transcriptResultMsg{err: err}, err
		}
		result, _ := data.(api.TranscriptResult)
		return transcriptResultMsg{result: result}, nil
	}
}

func questionJob(mutation *query.Mutation, client *api.Client, replyTo, question string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		data, err := mutation.Do(parent, func(ctx context.Context) (any, error) {
			return client.QueryDocuments(ctx, question, 0, true)
		})
		if err != nil {
			return answerResultMsg{replyTo: replyTo, err: err}, err
		}
		answer, _ := data.(api.QueryAnswer)
		return answerResultMsg{replyTo: replyTo, answer: answer}, nil
	}
}

func saveSettingsJob(path string, cfg config.Config) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if err := config.Save(path, &cfg); err != nil {
			return settingsSavedMsg{err: err}, err
		}
		return settingsSavedMsg{}, nil
	}
}
