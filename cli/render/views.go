package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ronit111/documind/types"
	"github.com/ronit111/documind/upload"
)

// Documents renders a document list, one row per document.
type Documents []types.DocumentRecord

func (d Documents) Header() []string {
	return []string{"ID", "FILENAME", "SIZE", "STATUS", "CHUNKS", "CREATED"}
}

func (d Documents) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, doc := range d {
		status := string(doc.Status)
		if doc.ErrorMessage != nil && *doc.ErrorMessage != "" {
			status += ": " + *doc.ErrorMessage
		}
		rows = append(rows, []string{
			doc.ID,
			doc.Filename,
			upload.FormatSize(doc.SizeBytes),
			status,
			strconv.Itoa(doc.ChunkCount),
			doc.CreatedAt.String(),
		})
	}
	return rows
}

// Tasks renders upload tasks in submission order.
type Tasks []types.UploadTask

func (t Tasks) Header() []string {
	return []string{"FILE", "SIZE", "STATUS", "PROGRESS", "DOCUMENT", "ERROR"}
}

func (t Tasks) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, task := range t {
		rows = append(rows, []string{
			task.File.Name,
			upload.FormatSize(task.File.Size),
			string(task.Status),
			fmt.Sprintf("%d%%", task.Progress),
			task.DocumentID,
			task.ErrorMessage,
		})
	}
	return rows
}

// Turns renders archived transcript turns.
type Turns []types.TranscriptTurn

func (t Turns) Header() []string {
	return []string{"STARTED", "SESSION", "OUTCOME", "SOURCES", "QUESTION"}
}

func (t Turns) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, turn := range t {
		rows = append(rows, []string{
			turn.StartedAt.Local().Format(time.DateTime),
			turn.SessionID,
			string(turn.Outcome),
			strconv.Itoa(len(turn.Sources)),
			truncate(turn.Question, 60),
		})
	}
	return rows
}

// Sources renders the citations of an answer.
type Sources []types.SourceChunk

func (s Sources) Header() []string {
	return []string{"#", "DOCUMENT", "SECTION", "SCORE"}
}

func (s Sources) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for i, src := range s {
		section := ""
		if src.SectionRef != nil {
			section = *src.SectionRef
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			src.DocumentName,
			section,
			fmt.Sprintf("%.0f%%", src.RelevanceScore*100),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
