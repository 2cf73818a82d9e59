package readers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
)

// OfficeFileReader converts office and markup documents with docconv. These
// formats carry no reliable page boundaries, so the text is one page.
type OfficeFileReader struct{}

func (r *OfficeFileReader) CanRead(filename string) bool {
	return hasExt(filename, ".docx", ".odt", ".rtf", ".html", ".htm", ".xml")
}

func (r *OfficeFileReader) ReadPages(_ context.Context, filename string, data []byte) (Extraction, error) {
	var (
		body string
		err  error
	)

	// docconv.Convert runs html through the external tidy binary and loses
	// the input when it is missing, so html is decoded directly.
	if hasExt(filename, ".html", ".htm") {
		body, err = docconv.HTMLToText(bytes.NewReader(data))
	} else {
		var res *docconv.Response
		res, err = docconv.Convert(bytes.NewReader(data), docconv.MimeTypeByExtension(filename), false)
		if res != nil {
			body = res.Body
		}
	}
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read document %s: %w", filename, err)
	}

	return Extraction{Pages: []Page{{Number: 1, Text: strings.TrimSpace(body)}}}, nil
}
