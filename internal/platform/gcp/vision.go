package gcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/ctxutil"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

var ErrInvalidDataURL = errors.New("image must be a base64 data URL")

type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Vision is the OCR collaborator of the quiz pipeline, backed by Cloud
// Vision document text detection.
type Vision struct {
	log     *logger.Logger
	client  annotator
	closer  func() error
	timeout time.Duration
}

var _ ai.OCR = (*Vision)(nil)

func NewVision(ctx context.Context, log *logger.Logger) (*Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	vClient, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	v := newVision(log, vClient)
	v.closer = vClient.Close
	return v, nil
}

func newVision(log *logger.Logger, client annotator) *Vision {
	return &Vision{
		log:     log.With("service", "gcp.Vision"),
		client:  client,
		timeout: 30 * time.Second,
	}
}

func (v *Vision) Close() error {
	if v == nil || v.closer == nil {
		return nil
	}
	return v.closer()
}

// ExtractText runs document text detection on a data:image/...;base64 URL.
// Empty text with a nil error means the image had nothing legible.
func (v *Vision) ExtractText(ctx context.Context, imageDataURL string, languageHints []string) (string, error) {
	img, err := decodeDataURL(imageDataURL)
	if err != nil {
		return "", err
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
	}
	if len(languageHints) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: languageHints}
	}
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if fta := r0.FullTextAnnotation; fta != nil && strings.TrimSpace(fta.Text) != "" {
		return strings.TrimSpace(fta.Text), nil
	}
	// older responses only carry the flat annotation list
	if len(r0.TextAnnotations) > 0 && r0.TextAnnotations[0] != nil {
		return collapseWhitespace(r0.TextAnnotations[0].Description), nil
	}
	v.log.Debug("ocr found no text", "bytes", len(img))
	return "", nil
}

func decodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(raw) == 0 {
		return nil, ErrInvalidDataURL
	}
	return raw, nil
}
