package gcp

import (
	"context"
	"errors"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/google/go-cmp/cmp"
	status "google.golang.org/genproto/googleapis/rpc/status"

	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type fakeAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
	got  *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.got = req
	return f.resp, f.err
}

func single(r *visionpb.AnnotateImageResponse) *visionpb.BatchAnnotateImagesResponse {
	return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{r}}
}

// "ABC" in base64
const dataURL = "data:image/jpeg;base64,QUJD"

func TestExtractText(t *testing.T) {
	fa := &fakeAnnotator{resp: single(&visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: "  Photosynthese braucht Licht.\n"},
	})}
	v := newVision(logger.Nop(), fa)

	got, err := v.ExtractText(context.Background(), dataURL, []string{"de", "en"})
	if err != nil || got != "Photosynthese braucht Licht." {
		t.Fatalf("ExtractText = %q, %v", got, err)
	}
	req := fa.got.Requests[0]
	if string(req.Image.Content) != "ABC" {
		t.Fatalf("content=%q", req.Image.Content)
	}
	if diff := cmp.Diff([]string{"de", "en"}, req.ImageContext.LanguageHints); diff != "" {
		t.Fatalf("hints mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTextFallsBackToTextAnnotations(t *testing.T) {
	v := newVision(logger.Nop(), &fakeAnnotator{resp: single(&visionpb.AnnotateImageResponse{
		TextAnnotations: []*visionpb.EntityAnnotation{{Description: "Die\nZelle  teilt sich"}},
	})})
	got, err := v.ExtractText(context.Background(), dataURL, nil)
	if err != nil || got != "Die Zelle teilt sich" {
		t.Fatalf("ExtractText = %q, %v", got, err)
	}
}

func TestExtractTextErrors(t *testing.T) {
	ctx := context.Background()

	v := newVision(logger.Nop(), &fakeAnnotator{err: errors.New("unavailable")})
	if _, err := v.ExtractText(ctx, dataURL, nil); err == nil {
		t.Fatalf("transport error should surface")
	}

	v = newVision(logger.Nop(), &fakeAnnotator{resp: single(&visionpb.AnnotateImageResponse{
		Error: &status.Status{Message: "bad image"},
	})})
	if _, err := v.ExtractText(ctx, dataURL, nil); err == nil {
		t.Fatalf("annotate error should surface")
	}

	v = newVision(logger.Nop(), &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{}})
	if got, err := v.ExtractText(ctx, dataURL, nil); err != nil || got != "" {
		t.Fatalf("empty response = %q, %v", got, err)
	}

	for _, in := range []string{"", "QUJD", "data:image/jpeg,QUJD", "data:image/jpeg;base64,%%"} {
		if _, err := v.ExtractText(ctx, in, nil); !errors.Is(err, ErrInvalidDataURL) {
			t.Fatalf("%q: want ErrInvalidDataURL, got %v", in, err)
		}
	}
}
