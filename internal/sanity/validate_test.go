package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeQuerier struct {
	doc    string
	err    error
	params map[string]any
	query  string
}

func (f *fakeQuerier) Fetch(_ context.Context, q string, params map[string]any, dst any) error {
	f.query, f.params = q, params
	if f.err != nil {
		return f.err
	}
	if f.doc == "" {
		return nil
	}
	return json.Unmarshal([]byte(f.doc), dst)
}

const enableURL = "https://shop.example/api/preview-mode/enable"

func TestValidatePreviewURL_Valid(t *testing.T) {
	q := &fakeQuerier{doc: `{"_id":"abc","secret":"s3","studioUrl":"https://studio.example"}`}
	v := ValidatePreviewURL(context.Background(), q,
		enableURL+"?sanity-preview-secret=s3&sanity-preview-pathname=%2Fstudio&sanity-preview-perspective=drafts")

	assert.True(t, v.IsValid)
	assert.Equal(t, "/studio", v.RedirectTo)
	assert.Equal(t, "drafts", v.Perspective)
	assert.Equal(t, "https://studio.example", v.StudioURL)
	assert.Equal(t, map[string]any{"secret": "s3"}, q.params)
	assert.Contains(t, q.query, `"sanity.previewUrlSecret"`)
	assert.Contains(t, q.query, "- 3600")
}

func TestValidatePreviewURL_Invalid(t *testing.T) {
	cases := map[string]struct {
		q   *fakeQuerier
		url string
	}{
		"no secret param":  {&fakeQuerier{doc: `{"_id":"abc","secret":"s3"}`}, enableURL},
		"no document":      {&fakeQuerier{}, enableURL + "?sanity-preview-secret=s3"},
		"query error":      {&fakeQuerier{err: errors.New("401")}, enableURL + "?sanity-preview-secret=s3"},
		"secret mismatch":  {&fakeQuerier{doc: `{"_id":"abc","secret":"other"}`}, enableURL + "?sanity-preview-secret=s3"},
		"unparseable url":  {&fakeQuerier{doc: `{"_id":"abc","secret":"s3"}`}, "http://[::1"},
		"bad json from db": {&fakeQuerier{doc: `[1,2]`}, enableURL + "?sanity-preview-secret=s3"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := ValidatePreviewURL(context.Background(), tc.q, tc.url)
			assert.False(t, v.IsValid)
			assert.Empty(t, v.RedirectTo)
		})
	}
}
