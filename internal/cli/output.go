package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"gitgauge/internal/domain"
	"gitgauge/internal/services"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatYML  = "yml"
)

// RenderRepositories renders a repository listing in the specified format
func RenderRepositories(repos []domain.Repository, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		return renderJSON(repos)
	case formatYAML, formatYML:
		return renderYAML(repos)
	default:
		return renderRepositoriesTable(repos)
	}
}

// RenderAnalysis renders an analysis result in the specified format
func RenderAnalysis(result *services.AnalysisResult, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		return renderJSON(map[string]interface{}{
			"analysis":   result.Analysis,
			"from_cache": result.FromCache,
		})
	case formatYAML, formatYML:
		return renderYAML(map[string]interface{}{
			"analysis":   result.Analysis,
			"from_cache": result.FromCache,
		})
	default:
		return renderAnalysisText(result)
	}
}

// RenderNotifications renders stored notifications in the specified format
func RenderNotifications(notifications []domain.Notification, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		return renderJSON(notifications)
	case formatYAML, formatYML:
		return renderYAML(notifications)
	default:
		return renderNotificationsTable(notifications)
	}
}

func renderRepositoriesTable(repos []domain.Repository) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Description", "Stars", "URL"})

	for _, repo := range repos {
		description := ""
		if repo.Description != nil {
			description = *repo.Description
		}
		if len(description) > 50 {
			description = description[:47] + "..."
		}

		t.AppendRow(table.Row{
			repo.Name,
			description,
			repo.Stars,
			repo.HTMLURL,
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func renderAnalysisText(result *services.AnalysisResult) error {
	a := result.Analysis

	header := fmt.Sprintf("%s/%s@%s", a.Owner, a.Repo, a.Ref)
	if result.FromCache {
		created := time.UnixMilli(a.CreatedAt).Format("2006-01-02 15:04")
		header += fmt.Sprintf(" (cached %s)", created)
	}
	fmt.Println(header)

	if a.FilesAnalyzed > 0 {
		fmt.Printf("Files analyzed: %d\n", a.FilesAnalyzed)
	}
	fmt.Println()
	if a.Summary != "" {
		fmt.Println(a.Summary)
		fmt.Println()
	}
	fmt.Println(a.Body)
	return nil
}

func renderNotificationsTable(notifications []domain.Notification) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Repository", "Message", "Received", "Read"})

	for _, n := range notifications {
		read := ""
		if n.Read {
			read = "*"
		}

		repo := n.RepoName
		if n.RepoOwner != "" {
			repo = n.RepoOwner + "/" + n.RepoName
		}

		t.AppendRow(table.Row{
			n.ID,
			repo,
			n.Message,
			time.UnixMilli(n.Timestamp).Format("2006-01-02 15:04"),
			read,
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func renderJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}

func renderYAML(v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Printf("%s", data)
	return nil
}

// Utility functions

// Success prints a success message with a checkmark
func Success(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Printf("⚠ "+format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Info prints an informational message
func Info(format string, args ...interface{}) {
	fmt.Printf("ℹ "+format+"\n", args...)
}
