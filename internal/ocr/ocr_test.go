package ocr

import (
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(text string, confidence float32, langs ...string) *visionpb.AnnotateImageResponse {
	var detected []*visionpb.TextAnnotation_DetectedLanguage
	for _, l := range langs {
		detected = append(detected, &visionpb.TextAnnotation_DetectedLanguage{LanguageCode: l})
	}
	return &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: text,
			Pages: []*visionpb.Page{{
				Confidence: confidence,
				Property:   &visionpb.TextAnnotation_TextProperty{DetectedLanguages: detected},
			}},
		},
	}
}

func TestCollectPages(t *testing.T) {
	result, err := collectPages([]*visionpb.AnnotateImageResponse{
		page("Rechnung 42", 0.8, "de"),
		page("Total 12,50", 0.6, "de", "en"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Rechnung 42\n\n--- Page 2 ---\n\nTotal 12,50", result.Text)
	assert.Equal(t, 2, result.PageCount)
	assert.InDelta(t, 0.7, result.Confidence, 0.0001)
	assert.Equal(t, []string{"de", "en"}, result.LanguageCodes)
}

func TestCollectPagesErrors(t *testing.T) {
	_, err := collectPages(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = collectPages([]*visionpb.AnnotateImageResponse{page("   ", 0.9)})
	assert.ErrorIs(t, err, ErrEmptyDocument)

	many := make([]*visionpb.AnnotateImageResponse, MaxPagesSync+1)
	for i := range many {
		many[i] = page("x", 1)
	}
	_, err = collectPages(many)
	assert.ErrorIs(t, err, ErrTooManyPages)
}

func TestWrapOCRError(t *testing.T) {
	assert.Nil(t, WrapOCRError("op", nil, ""))

	err := WrapOCRError("Vision.Text", ErrUnsupportedType, "application/msword")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Equal(t, "ocr: Vision.Text failed: application/msword: unsupported document type for OCR", err.Error())

	assert.Same(t, err, WrapOCRError("outer", err, "ignored"))
}
