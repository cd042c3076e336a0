package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

const (
	nsDrawing = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresent = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRel     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Point sizes for runs that inherit their size from the slide layout.
var placeholderSizes = map[string]float64{
	"title":    44,
	"ctrTitle": 44,
	"subTitle": 32,
}

const defaultRunSize = 18

// maxPartSize caps the decompressed size of any one XML part.
var maxPartSize int64 = 32 << 20

// ErrPartTooLarge is returned when a part expands past maxPartSize.
var ErrPartTooLarge = errors.New("presentation part too large")

// openPart opens f for reading, failing once more than maxPartSize bytes
// have been decompressed.
func openPart(f *zip.File) (io.ReadCloser, error) {
	if f.UncompressedSize64 > uint64(maxPartSize) {
		return nil, fmt.Errorf("%s: %w", f.Name, ErrPartTooLarge)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	return &partReader{r: io.LimitReader(rc, maxPartSize+1), c: rc, name: f.Name}, nil
}

type partReader struct {
	r    io.Reader
	c    io.Closer
	name string
	read int64
}

func (p *partReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.read > maxPartSize {
		return 0, fmt.Errorf("%s: %w", p.name, ErrPartTooLarge)
	}
	return n, err
}

func (p *partReader) Close() error { return p.c.Close() }

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// OpenPPTX decodes an Office Open XML presentation. Slides are read in
// presentation order and fragment sizes are run font sizes in points.
func OpenPPTX(data []byte) (Source, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DecodeError{Format: FormatPPTX, Err: err}
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	slidePaths, err := slideOrder(files)
	if err != nil {
		return nil, &DecodeError{Format: FormatPPTX, Err: err}
	}

	src := &pageSource{pages: make([][]lesson.Fragment, len(slidePaths))}
	for i, p := range slidePaths {
		f, ok := files[p]
		if !ok {
			return nil, &DecodeError{Format: FormatPPTX, Err: fmt.Errorf("missing slide part %s", p)}
		}
		frags, err := readSlide(f)
		if err != nil {
			return nil, &DecodeError{Format: FormatPPTX, Err: fmt.Errorf("slide %d: %w", i+1, err)}
		}
		src.pages[i] = frags
	}
	return src, nil
}

// slideOrder resolves p:sldIdLst through the presentation relationships.
func slideOrder(files map[string]*zip.File) ([]string, error) {
	var pres presentationXML
	if err := decodePart(files, "ppt/presentation.xml", &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(files, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = r.Target
	}

	out := make([]string, 0, len(pres.SlideIDs))
	for _, s := range pres.SlideIDs {
		target, ok := targets[s.RelID]
		if !ok {
			return nil, fmt.Errorf("unresolved slide relationship %q", s.RelID)
		}
		if strings.HasPrefix(target, "/") {
			out = append(out, strings.TrimPrefix(target, "/"))
		} else {
			out = append(out, path.Join("ppt", target))
		}
	}
	return out, nil
}

func decodePart(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("missing part %s", name)
	}
	rc, err := openPart(f)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// readSlide streams a slide part and returns one fragment per run of
// same-sized text inside a paragraph.
func readSlide(f *zip.File) ([]lesson.Fragment, error) {
	rc, err := openPart(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		frags    []lesson.Fragment
		cur      strings.Builder
		curSize  float64
		phType   string
		hasPh    bool
		runSize  float64
		inText   bool
		runText  strings.Builder
		inRunish bool
	)

	flush := func() {
		if cur.Len() > 0 {
			frags = append(frags, lesson.Fragment{Text: cur.String(), Size: curSize})
		}
		cur.Reset()
	}
	sizeFor := func() float64 {
		if runSize > 0 {
			return runSize
		}
		if s, ok := placeholderSizes[phType]; ok && hasPh {
			return s
		}
		return defaultRunSize
	}

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsPresent && t.Name.Local == "sp":
				phType, hasPh = "", false
			case t.Name.Space == nsPresent && t.Name.Local == "ph":
				hasPh = true
				phType = attr(t, "type")
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				flush()
			case t.Name.Space == nsDrawing && (t.Name.Local == "r" || t.Name.Local == "fld"):
				inRunish = true
				runSize = 0
				runText.Reset()
			case t.Name.Space == nsDrawing && t.Name.Local == "rPr" && inRunish:
				if sz := attr(t, "sz"); sz != "" {
					if n, err := strconv.Atoi(sz); err == nil && n > 0 {
						runSize = float64(n) / 100
					}
				}
			case t.Name.Space == nsDrawing && t.Name.Local == "t" && inRunish:
				inText = true
			case t.Name.Space == nsDrawing && t.Name.Local == "br":
				flush()
			}
		case xml.CharData:
			if inText {
				runText.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				inText = false
			case t.Name.Space == nsDrawing && (t.Name.Local == "r" || t.Name.Local == "fld"):
				inRunish = false
				if runText.Len() == 0 {
					continue
				}
				size := sizeFor()
				if cur.Len() > 0 && size != curSize {
					flush()
				}
				curSize = size
				cur.WriteString(runText.String())
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				flush()
			}
		}
	}
	flush()
	return frags, nil
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}
