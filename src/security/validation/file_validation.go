package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/bankfolio/src/logger"
)

// AllowedClientContentTypes is a lookup of client-declared MIME types
// accepted for statement uploads: delimited text plus xlsx spreadsheets.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel often declares this for CSV
	"text/plain":               true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// ValidateClientContentType checks the Content-Type header declared by the
// client against the allow list.
func ValidateClientContentType(contentType string) error {
	if !AllowedClientContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type %q is not allowed for statement upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual file content signature.
// Delimited text detects as a text type; xlsx is a zip container. It returns
// the detected content type and resets the reader to the start.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":      true,
		"text/csv":        true,
		"application/csv": true,
		"application/zip": true, // xlsx
		// Generic fallback; the parser rejects anything that is not
		// actually tabular.
		"application/octet-stream": true,
	}

	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type %q is not a supported statement format", detected)
	}
	return detected, nil
}
