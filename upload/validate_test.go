package upload

import (
	"strings"
	"testing"

	"github.com/ronit111/documind/types"
)

func TestValidate(t *testing.T) {
	const mib = 1024 * 1024

	tests := []struct {
		name     string
		file     types.FileRef
		wantRule Rule
	}{
		{
			name:     "executable rejected",
			file:     types.FileRef{Name: "malware.exe", MediaType: "application/x-msdownload", Size: 1024},
			wantRule: RuleFileType,
		},
		{
			name:     "executable without media type rejected",
			file:     types.FileRef{Name: "malware.exe", Size: 1024},
			wantRule: RuleFileType,
		},
		{
			name:     "too large",
			file:     types.FileRef{Name: "big.pdf", MediaType: "application/pdf", Size: 11 * mib},
			wantRule: RuleFileSize,
		},
		{
			name: "pdf accepted",
			file: types.FileRef{Name: "report.pdf", MediaType: "application/pdf", Size: 2 * mib},
		},
		{
			name: "exactly at ceiling accepted",
			file: types.FileRef{Name: "edge.txt", MediaType: "text/plain", Size: MaxFileSize},
		},
		{
			name: "uppercase extension accepted",
			file: types.FileRef{Name: "NOTES.MD", Size: 10},
		},
		{
			name: "allowed media type rescues unknown extension",
			file: types.FileRef{Name: "README", MediaType: "text/plain; charset=utf-8", Size: 10},
		},
		{
			name: "allowed extension rescues unknown media type",
			file: types.FileRef{Name: "spec.docx", MediaType: "application/zip", Size: 10},
		},
		{
			name:     "no extension and no media type rejected",
			file:     types.FileRef{Name: "Makefile", Size: 10},
			wantRule: RuleFileType,
		},
		{
			name: "bare extension name accepted",
			file: types.FileRef{Name: "md", Size: 10},
		},
		{
			name:     "sniffed text does not rescue unknown type",
			file:     types.FileRef{Name: "payload.sh", SniffedType: "text/plain; charset=utf-8", Size: 10},
			wantRule: RuleFileType,
		},
		{
			name:     "pdf with text content rejected",
			file:     types.FileRef{Name: "report.pdf", MediaType: "application/pdf", SniffedType: "text/plain; charset=utf-8", Size: 10},
			wantRule: RuleFileContent,
		},
		{
			name: "pdf with pdf content accepted",
			file: types.FileRef{Name: "report.pdf", MediaType: "application/pdf", SniffedType: "application/pdf", Size: 10},
		},
		{
			name: "docx sniffed as zip accepted",
			file: types.FileRef{Name: "spec.docx", SniffedType: "application/zip", Size: 10},
		},
		{
			name:     "text file with binary content rejected",
			file:     types.FileRef{Name: "notes.txt", SniffedType: "application/x-msdownload", Size: 10},
			wantRule: RuleFileContent,
		},
		{
			name: "kind taken from media type when extension is unknown",
			file: types.FileRef{Name: "README", MediaType: "text/plain", SniffedType: "text/plain; charset=utf-8", Size: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("expected accepted, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected rejection by %s", tt.wantRule)
			}
			if err.Rule != tt.wantRule {
				t.Errorf("rule = %s, want %s", err.Rule, tt.wantRule)
			}
			if err.File != tt.file.Name {
				t.Errorf("file = %q, want %q", err.File, tt.file.Name)
			}
		})
	}
}

func TestValidate_Reasons(t *testing.T) {
	typeErr := Validate(types.FileRef{Name: "malware.exe", Size: 1})
	if typeErr.Reason != "Unsupported file type. Allowed: .pdf, .docx, .txt, .md" {
		t.Errorf("type reason = %q", typeErr.Reason)
	}

	sizeErr := Validate(types.FileRef{Name: "big.pdf", Size: 11 * 1024 * 1024})
	if sizeErr.Reason != "File too large (11 MB). Maximum: 10 MB" {
		t.Errorf("size reason = %q", sizeErr.Reason)
	}
	if !strings.Contains(sizeErr.Error(), "10 MB") {
		t.Errorf("error text should name the limit: %q", sizeErr.Error())
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10 MB"},
		{11*1024*1024 + 300*1024, "11.3 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
