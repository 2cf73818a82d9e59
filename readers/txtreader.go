package readers

import (
	"context"
	"strings"
)

type TxtFileReader struct{}

func (r *TxtFileReader) CanRead(filename string) bool {
	return hasExt(filename, ".txt", ".md")
}

func (r *TxtFileReader) ReadPages(_ context.Context, _ string, data []byte) (Extraction, error) {
	return Extraction{
		Pages: []Page{{Number: 1, Text: strings.ToValidUTF8(string(data), "")}},
	}, nil
}
