package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// DOCX joins the text of every paragraph in word/document.xml with newlines.
func DOCX(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionError("docx", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return "", extractionError("docx", err)
		}
		paras, err := paragraphs(ctx, content)
		if err != nil {
			return "", extractionError("docx", err)
		}
		return strings.Join(paras, "\n"), nil
	}
	return "", extractionError("docx", errors.New("word/document.xml not found"))
}

// PPTX joins the text of every slide, in slide order, one paragraph per line.
func PPTX(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionError("pptx", err)
	}

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, f: f})
	}
	if len(slides) == 0 {
		if !hasFile(zr, "ppt/presentation.xml") {
			return "", extractionError("pptx", errors.New("ppt/presentation.xml not found"))
		}
		return "", nil
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var out []string
	for _, s := range slides {
		content, err := readZipFile(s.f)
		if err != nil {
			return "", extractionError("pptx", err)
		}
		paras, err := paragraphs(ctx, content)
		if err != nil {
			return "", extractionError("pptx", fmt.Errorf("slide %d: %w", s.n, err))
		}
		out = append(out, paras...)
	}
	return strings.Join(out, "\n"), nil
}

// paragraphs streams an OOXML part and returns the text of each <p> element.
// Both WordprocessingML (w:p/w:t) and DrawingML (a:p/a:t) use these local names.
func paragraphs(ctx context.Context, content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var (
		paras  []string
		cur    strings.Builder
		inText bool
		depth  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				depth--
				if depth == 0 {
					paras = append(paras, cur.String())
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hasFile(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}
