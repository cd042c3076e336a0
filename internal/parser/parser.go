package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// Source yields the text fragments of a decoded document, one page or
// slide at a time. Pages are numbered from 1.
type Source interface {
	NumPages() int
	Page(n int) ([]lesson.Fragment, error)
}

// Format identifies a supported source format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
	FormatPPT  Format = "ppt"
)

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]Format{
	".pdf":  FormatPDF,
	".pptx": FormatPPTX,
	".ppt":  FormatPPT,
}

// ErrUnsupportedFormat is wrapped by every UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError reports a file whose format has no structural
// extraction.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("no structural extraction for %q files", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DecodeError reports a document that could not be opened or parsed. It
// always covers the whole document.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UserMessage is the message shown to the uploader.
func (e *DecodeError) UserMessage() string {
	if e.Format == FormatPDF {
		return "Failed to parse PDF file"
	}
	return "Failed to parse file"
}

var (
	magicPDF = []byte("%PDF")
	magicZip = []byte("PK\x03\x04")
	magicOLE = []byte("\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1")
)

// Detect picks the format from the file extension, falling back to the
// leading magic bytes for files without a recognized extension.
func Detect(filename string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := SupportedExtensions[ext]; ok {
		return f, nil
	}
	switch {
	case bytes.HasPrefix(data, magicPDF):
		return FormatPDF, nil
	case bytes.HasPrefix(data, magicZip):
		return FormatPPTX, nil
	case bytes.HasPrefix(data, magicOLE):
		return FormatPPT, nil
	}
	return "", &UnsupportedFormatError{Ext: ext}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Decoder opens raw file bytes as a Source.
type Decoder struct {
	// FallbackPdftotext retries PDFs the Go library cannot open with the
	// pdftotext binary, if it is installed.
	FallbackPdftotext bool
}

// Open decodes data in the given format.
func (d Decoder) Open(format Format, data []byte) (Source, error) {
	switch format {
	case FormatPDF:
		src, err := OpenPDF(data)
		if err != nil && d.FallbackPdftotext {
			if fb, fbErr := openPdftotext(data); fbErr == nil {
				return fb, nil
			}
		}
		return src, err
	case FormatPPTX:
		return OpenPPTX(data)
	case FormatPPT:
		return nil, &UnsupportedFormatError{Ext: ".ppt"}
	}
	return nil, &UnsupportedFormatError{Ext: string(format)}
}

// recoverDecode turns a panic inside a third-party decoder into a
// DecodeError.
func recoverDecode(format Format, err *error) {
	if r := recover(); r != nil {
		*err = &DecodeError{Format: format, Err: fmt.Errorf("decoder panic: %v", r)}
	}
}

// pageSource is a Source over fragments that were decoded up front.
type pageSource struct {
	pages [][]lesson.Fragment
}

func (s *pageSource) NumPages() int { return len(s.pages) }

func (s *pageSource) Page(n int) ([]lesson.Fragment, error) {
	if n < 1 || n > len(s.pages) {
		return nil, fmt.Errorf("page %d out of range [1,%d]", n, len(s.pages))
	}
	return s.pages[n-1], nil
}
