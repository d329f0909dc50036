// Package upload validates candidate files and runs concurrent document uploads.
package upload

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ronit111/documind/types"
)

// MaxFileSize is the largest accepted file (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// AllowedExtensions lists the accepted file extensions, lowercase.
var AllowedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// AllowedMediaTypes lists the accepted declared media types.
var AllowedMediaTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"text/markdown",
}

// Rule names the validation rule a file failed.
type Rule string

// Validation rules.
const (
	RuleFileType    Rule = "file_type"
	RuleFileSize    Rule = "file_size"
	RuleFileContent Rule = "file_content"
)

// ValidationError reports a file rejected before transfer.
type ValidationError struct {
	Rule   Rule
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// Validate checks file against the type, size and content rules.
// The type rule fails only when both the extension and the declared media
// type are outside the allowed sets. The content rule only applies when a
// sniffed type is known and can only reject. Validate never touches the file.
func Validate(file types.FileRef) *ValidationError {
	if !slices.Contains(AllowedExtensions, extension(file.Name)) &&
		!slices.Contains(AllowedMediaTypes, baseMediaType(file.MediaType)) {
		return &ValidationError{
			Rule:   RuleFileType,
			File:   file.Name,
			Reason: "Unsupported file type. Allowed: " + strings.Join(AllowedExtensions, ", "),
		}
	}
	if file.Size > MaxFileSize {
		return &ValidationError{
			Rule:   RuleFileSize,
			File:   file.Name,
			Reason: fmt.Sprintf("File too large (%s). Maximum: %s", FormatSize(file.Size), FormatSize(MaxFileSize)),
		}
	}
	if file.SniffedType != "" && !contentMatches(file, baseMediaType(file.SniffedType)) {
		return &ValidationError{
			Rule:   RuleFileContent,
			File:   file.Name,
			Reason: "File content does not match its type",
		}
	}
	return nil
}

// extension returns everything after the last dot, so a bare "md" is ".md".
func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	return "." + strings.ToLower(name[i+1:])
}

// contentMatches reports whether the sniffed type fits the kind of document
// the file was accepted as.
func contentMatches(file types.FileRef, sniffed string) bool {
	kind := extension(file.Name)
	if !slices.Contains(AllowedExtensions, kind) {
		// AllowedMediaTypes and AllowedExtensions line up by index.
		if i := slices.Index(AllowedMediaTypes, baseMediaType(file.MediaType)); i >= 0 {
			kind = AllowedExtensions[i]
		}
	}
	switch kind {
	case ".pdf":
		return sniffed == "application/pdf"
	case ".docx":
		return sniffed == AllowedMediaTypes[1] || sniffed == "application/zip"
	case ".txt", ".md":
		return strings.HasPrefix(sniffed, "text/")
	}
	return false
}

// baseMediaType strips parameters such as "; charset=utf-8".
func baseMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/unit)) + " KB"
	default:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/(unit*unit))) + " MB"
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
