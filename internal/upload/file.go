package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"paydesk/internal/api"
)

// MaxFileSize is the largest accepted upload, 5 MiB.
const MaxFileSize = 5 << 20

// AllowedTypes are the accepted MIME types, keyed to a short label.
var AllowedTypes = map[string]string{
	"application/pdf":    "PDF",
	"application/msword": "DOC",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "DOCX",
	"application/vnd.ms-excel": "XLS",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "XLSX",
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
}

// extensionTypes resolves Office documents whose content sniffs as a generic
// container.
var extensionTypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// containerTypes are sniffed types that say nothing about the document.
var containerTypes = map[string]bool{
	"application/zip":          true,
	"application/x-ole-storage": true,
}

// File is a document chosen for upload.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

// FileFromPath reads a file from disk and detects its MIME type from its
// content. Files over MaxFileSize are not read; only their type and size are
// filled so selection can reject them.
func FileFromPath(path string) (File, error) {
	const op = "upload.FileFromPath"

	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", op, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s: %s is a directory", op, path)
	}

	file := File{
		Name: filepath.Base(path),
		Size: info.Size(),
	}

	if info.Size() > MaxFileSize {
		detected, err := mimetype.DetectReader(f)
		if err != nil {
			return File{}, fmt.Errorf("%s: detecting type: %w", op, err)
		}
		file.MIMEType = resolveType(detected.String(), file.Name)
		return file, nil
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", op, err)
	}
	file.Content = content
	file.Size = int64(len(content))
	file.MIMEType = resolveType(mimetype.Detect(content).String(), file.Name)
	return file, nil
}

// resolveType strips parameters from a sniffed type and, for generic
// containers only, falls back to the file extension.
func resolveType(detected, name string) string {
	mediaType := normalizeType(detected)
	if containerTypes[mediaType] {
		if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			return t
		}
	}
	return mediaType
}

func normalizeType(t string) string {
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return strings.ToLower(mediaType)
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// Validate checks the file against the type allow-list and size limit.
func (f File) Validate() error {
	if _, ok := AllowedTypes[normalizeType(f.MIMEType)]; !ok {
		return newValidationError("file", ErrInvalidFileType,
			"Invalid file type. Please upload a PDF, Word, Excel, JPEG or PNG file")
	}
	if f.Size > MaxFileSize {
		return newValidationError("file", ErrFileTooLarge, "File size must be less than 5MB")
	}
	return nil
}

func (f File) apiFile() api.File {
	return api.File{
		Name:        f.Name,
		ContentType: normalizeType(f.MIMEType),
		Content:     f.Content,
	}
}
