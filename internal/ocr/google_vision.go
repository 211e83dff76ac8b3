package ocr

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"paydesk/internal/logger"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

// fileTypes go through file annotation; imageTypes through image annotation.
var (
	fileTypes  = map[string]bool{"application/pdf": true, "image/tiff": true, "image/gif": true}
	imageTypes = map[string]bool{"image/jpeg": true, "image/png": true}
)

// VisionService implements Service using Google Cloud Vision API.
type VisionService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionService creates a Vision client. Without credentialsJSON the
// application default credentials are used.
func NewVisionService(ctx context.Context, credentialsJSON []byte) (*VisionService, error) {
	const op = "NewVisionService"

	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &VisionService{
		client: client,
		log:    logger.WithComponent("ocr"),
	}, nil
}

// Text runs document text detection on content.
func (v *VisionService) Text(ctx context.Context, content []byte, mimeType string) (*Result, error) {
	const op = "Vision.Text"
	start := time.Now()

	if len(content) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	features := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}
	var pages []*visionpb.AnnotateImageResponse

	switch {
	case fileTypes[mimeType]:
		resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: content, MimeType: mimeType},
				Features:    features,
			}},
		})
		if err != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}
		if len(resp.GetResponses()) == 0 {
			return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
		}
		fileResp := resp.GetResponses()[0]
		if fileResp.GetError() != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.GetError().GetMessage()))
		}
		pages = fileResp.GetResponses()

	case imageTypes[mimeType]:
		resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
			Requests: []*visionpb.AnnotateImageRequest{{
				Image:    &visionpb.Image{Content: content},
				Features: features,
			}},
		})
		if err != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}
		pages = resp.GetResponses()

	default:
		return nil, WrapOCRError(op, ErrUnsupportedType, mimeType)
	}

	result, err := collectPages(pages)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	result.ProcessingDuration = time.Since(start)

	v.log.Debug().
		Int("pages", result.PageCount).
		Float32("confidence", result.Confidence).
		Strs("languages", result.LanguageCodes).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR completed")

	return result, nil
}

// collectPages joins the per-page annotations into one Result.
func collectPages(pages []*visionpb.AnnotateImageResponse) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(pages) > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, len(pages))
	}

	var text strings.Builder
	var confidenceSum float32
	var confidenceCount int
	languages := make(map[string]bool)

	for i, page := range pages {
		if page.GetError() != nil {
			return nil, fmt.Errorf("error processing page %d: %s", i+1, page.GetError().GetMessage())
		}
		annotation := page.GetFullTextAnnotation()
		if annotation == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n", i+1)
		}
		text.WriteString(annotation.GetText())

		for _, p := range annotation.GetPages() {
			if p.GetConfidence() > 0 {
				confidenceSum += p.GetConfidence()
				confidenceCount++
			}
			for _, lang := range p.GetProperty().GetDetectedLanguages() {
				if lang.GetLanguageCode() != "" {
					languages[lang.GetLanguageCode()] = true
				}
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyDocument
	}

	result := &Result{
		Text:      text.String(),
		PageCount: len(pages),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	for lang := range languages {
		result.LanguageCodes = append(result.LanguageCodes, lang)
	}
	slices.Sort(result.LanguageCodes)
	return result, nil
}

// Close closes the underlying Vision client.
func (v *VisionService) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
