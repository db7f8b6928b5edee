package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
)

func pdf(n int) []byte {
	return append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), n)...)
}

func TestValidateResume(t *testing.T) {
	require.NoError(t, ValidateResume("application/pdf", pdf(10)))
	require.NoError(t, ValidateResume("Application/PDF; charset=binary", pdf(10)))

	cases := map[string]struct {
		ct   string
		data []byte
	}{
		"wrong type":   {"image/png", pdf(10)},
		"empty":        {"application/pdf", nil},
		"too large":    {"application/pdf", pdf(MaxResumeBytes)},
		"not pdf data": {"application/pdf", []byte("GIF89a")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateResume(tc.ct, tc.data), domain.ErrValidation)
		})
	}
}

func TestHTTPUploaderPuts(t *testing.T) {
	var gotPath, gotType, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "tok", time.Second, nil)
	url, err := u.Upload(context.Background(), "resumes/job 1/app.pdf", ResumeContentType, pdf(3))
	require.NoError(t, err)

	assert.Equal(t, "/resumes/job%201/app.pdf", gotPath)
	assert.Equal(t, ResumeContentType, gotType)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, pdf(3), gotBody)
	assert.Equal(t, srv.URL+"/resumes/job%201/app.pdf", url)
}

func TestHTTPUploaderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "", time.Second, nil)
	_, err := u.Upload(context.Background(), "a.pdf", ResumeContentType, pdf(1))
	require.Error(t, err)

	_, err = u.Upload(context.Background(), " / ", ResumeContentType, pdf(1))
	require.Error(t, err)
}

func TestNewHTTPUploaderWithoutURL(t *testing.T) {
	assert.Nil(t, NewHTTPUploader("", "", 0, nil))
}

func TestMemoryUploader(t *testing.T) {
	m := NewMemory()
	url, err := m.Upload(context.Background(), "resumes/a.pdf", ResumeContentType, pdf(1))
	require.NoError(t, err)
	assert.Equal(t, "memory://resumes/a.pdf", url)

	got, ok := m.Get("resumes/a.pdf")
	require.True(t, ok)
	assert.Equal(t, pdf(1), got)
}
