package ocr

import (
	"context"
	"errors"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"
)

type fakeAnnotator struct {
	req  *visionpb.BatchAnnotateImagesRequest
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
}

func (a *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	a.req = req
	return a.resp, a.err
}

func (a *fakeAnnotator) Close() error { return nil }

func Test_Vision_ExtractText(t *testing.T) {
	ann := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "Scanned  text\nverbatim"},
		}},
	}}
	v := &Vision{client: ann}

	text, err := v.ExtractText(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "Scanned  text\nverbatim", text)

	require.Len(t, ann.req.Requests, 1)
	assert.Equal(t, []byte{1, 2, 3}, ann.req.Requests[0].Image.Content)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, ann.req.Requests[0].Features[0].Type)
}

func Test_Vision_EmptyImage(t *testing.T) {
	ann := &fakeAnnotator{}
	v := &Vision{client: ann}

	text, err := v.ExtractText(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, ann.req)
}

func Test_Vision_Errors(t *testing.T) {
	v := &Vision{client: &fakeAnnotator{err: errors.New("quota exceeded")}}
	_, err := v.ExtractText(context.Background(), []byte{1})
	assert.ErrorContains(t, err, "quota exceeded")

	v = &Vision{client: &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad image"}}},
	}}}
	_, err = v.ExtractText(context.Background(), []byte{1})
	assert.ErrorContains(t, err, "bad image")
}

func Test_Vision_NoText(t *testing.T) {
	v := &Vision{client: &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}}}

	text, err := v.ExtractText(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Empty(t, text)
}
