package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ronit111/documind/types"
	"github.com/ronit111/documind/upload"
)

// TaskUpdateMsg delivers a changed upload task to the uploads view.
type TaskUpdateMsg types.UploadTask

// UploadsDoneMsg reports that every transfer finished.
type UploadsDoneMsg struct {
	Summary upload.Summary
}

// UploadsModel shows one progress bar per upload task, in submission order.
type UploadsModel struct {
	tasks    []types.UploadTask
	index    map[string]int
	bar      progress.Model
	summary  *upload.Summary
	quitting bool
}

// NewUploadsModel creates an empty uploads view.
func NewUploadsModel() UploadsModel {
	return UploadsModel{
		index: make(map[string]int),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(32)),
	}
}

// Tasks returns the tasks as last seen by the view.
func (m UploadsModel) Tasks() []types.UploadTask {
	return m.tasks
}

// Init implements tea.Model.
func (m UploadsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m UploadsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-48, 10), 48)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case TaskUpdateMsg:
		m.upsert(types.UploadTask(msg))
		return m, nil

	case UploadsDoneMsg:
		m.summary = &msg.Summary
		return m, tea.Quit
	}
	return m, nil
}

// upsert records task. Updates for a known id replace it in place, so the
// order is the order tasks were first seen.
func (m *UploadsModel) upsert(task types.UploadTask) {
	if i, ok := m.index[task.ID]; ok {
		m.tasks[i] = task
		return
	}
	m.index[task.ID] = len(m.tasks)
	m.tasks = append(m.tasks, task)
}

// View implements tea.Model.
func (m UploadsModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Uploading documents"))
	b.WriteString("\n")

	nameWidth := 12
	for _, t := range m.tasks {
		nameWidth = max(nameWidth, min(len(t.File.Name), 40))
	}

	for _, t := range m.tasks {
		name := t.File.Name
		if len(name) > nameWidth {
			name = name[:nameWidth-1] + "…"
		}
		fmt.Fprintf(&b, "%-*s  ", nameWidth, name)
		switch t.Status {
		case types.UploadError:
			b.WriteString(ErrorStyle.Render("✗ " + t.ErrorMessage))
		case types.UploadDone:
			b.WriteString(m.bar.ViewAs(1))
			b.WriteString(" " + SuccessStyle.Render("✓ "+t.DocumentID))
		default:
			b.WriteString(m.bar.ViewAs(float64(t.Progress) / 100))
			b.WriteString(" " + StatusStyle(string(t.Status)).Render(string(t.Status)))
		}
		b.WriteString("\n")
	}

	if m.summary != nil {
		s := m.summary
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d uploaded, %d failed, %d rejected\n", s.Done, s.Failed, s.Rejected)
	} else if !m.quitting {
		b.WriteString(HelpStyle.Render("q to stop watching (uploads continue)"))
		b.WriteString("\n")
	}
	return b.String()
}

// RunUploads runs the uploads view while start submits the batch. start
// receives the function the orchestrator's update hook should call; it must
// return once every transfer finished. The view's final task list is
// returned.
func RunUploads(ctx context.Context, start func(onUpdate func(types.UploadTask)) upload.Summary) ([]types.UploadTask, error) {
	p := tea.NewProgram(NewUploadsModel(), tea.WithContext(ctx))
	go func() {
		summary := start(func(t types.UploadTask) { p.Send(TaskUpdateMsg(t)) })
		p.Send(UploadsDoneMsg{Summary: summary})
	}()

	final, err := p.Run()
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return nil, err
	}
	if m, ok := final.(UploadsModel); ok {
		return m.Tasks(), nil
	}
	return nil, nil
}
