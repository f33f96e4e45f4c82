// Package docext extracts gradable plain text from uploaded documents.
// A .docx file is a zip archive whose word/document.xml carries the text in
// WordprocessingML <w:t> runs; paragraphs become newlines.
package docext

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const documentEntry = "word/document.xml"

// ExtractText reads the document at path and returns its plain text.
// Supported types: .docx and .txt. Failures here are display-only errors for
// the caller; they never reach the review pipeline.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return string(data), nil
	case ".docx":
		return extractDocx(path)
	default:
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer archive.Close()

	for _, entry := range archive.File {
		if entry.Name != documentEntry {
			continue
		}

		reader, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document entry: %w", err)
		}
		defer reader.Close()

		return decodeDocumentXML(reader)
	}

	return "", fmt.Errorf("docx archive has no %s entry", documentEntry)
}

func decodeDocumentXML(reader io.Reader) (string, error) {
	decoder := xml.NewDecoder(reader)
	builder := strings.Builder{}
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document xml: %w", err)
		}

		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(element)
			}
		}
	}

	return builder.String(), nil
}
