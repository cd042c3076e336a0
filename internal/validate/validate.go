package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/skillsprint/internal/parser"
)

// MaxSize is the largest accepted upload, 100 MiB.
const MaxSize int64 = 100 << 20

const (
	ReasonTooLarge    = tooLargePrefix + "100MB"
	ReasonUnsupported = "Please upload a PDF or PowerPoint file"
)

const tooLargePrefix = "File size must be less than "

// TooLargeReason is the size rejection message for limit. The default
// limit yields ReasonTooLarge.
func TooLargeReason(limit int64) string {
	if limit == MaxSize {
		return ReasonTooLarge
	}
	if limit >= 1<<20 && limit%(1<<20) == 0 {
		return fmt.Sprintf("%s%dMB", tooLargePrefix, limit>>20)
	}
	return fmt.Sprintf("%s%d bytes", tooLargePrefix, limit)
}

// Limit clamps a configured upload limit to (0, MaxSize].
func Limit(configured int64) int64 {
	if configured <= 0 || configured > MaxSize {
		return MaxSize
	}
	return configured
}

// Declared content types accepted without looking at the filename.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypePPT  = "application/vnd.ms-powerpoint"
	MediaTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// SupportedMediaType reports whether mt, ignoring parameters and case, is
// one of the accepted content types.
func SupportedMediaType(mt string) bool {
	switch mediaType(mt) {
	case MediaTypePDF, MediaTypePPT, MediaTypePPTX:
		return true
	}
	return false
}

// FileInfo is the metadata checked before any decoding happens.
type FileInfo struct {
	Size      int64
	MediaType string
	Filename  string
}

// Result is the outcome of Check. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Reason: r.Reason}
}

// Error is a failed pre-flight check. Reason is shown to the user as is.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// TooLarge reports whether the rejection was for size.
func (e *Error) TooLarge() bool { return strings.HasPrefix(e.Reason, tooLargePrefix) }

// Check applies the size rule against MaxSize, then the format rule. The
// first failure wins.
func Check(fi FileInfo) Result {
	return CheckLimit(fi, MaxSize)
}

// CheckLimit is Check with a smaller size limit, as clamped by Limit.
func CheckLimit(fi FileInfo, limit int64) Result {
	limit = Limit(limit)
	if fi.Size > limit {
		return Result{Reason: TooLargeReason(limit)}
	}
	if !SupportedMediaType(fi.MediaType) && !parser.IsSupportedExtension(fi.Filename) {
		return Result{Reason: ReasonUnsupported}
	}
	return Result{Valid: true}
}

// mediaType drops parameters such as "; charset=binary".
func mediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// SanitizeFilename keeps only the base name of an uploaded file and
// removes anything that could escape a directory.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return "unnamed"
	}
	return strings.ReplaceAll(name, "..", "_")
}
