package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Text returns plain-text and markdown content as-is. Content must be UTF-8.
func Text(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", extractionError("txt_md", errors.New("content is not valid UTF-8"))
	}
	return string(data), nil
}

// CSV renders the table as aligned rows, header first, each data row prefixed by its index.
func CSV(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", extractionError("csv", err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return "", nil
	}

	var buf strings.Builder
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for i, row := range rows {
		prefix := ""
		if i > 0 {
			prefix = strconv.Itoa(i - 1)
		}
		_, _ = io.WriteString(tw, prefix+"\t"+strings.Join(row, "\t")+"\n")
	}
	if err := tw.Flush(); err != nil {
		return "", extractionError("csv", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n"), nil
}
