package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/applicant-harvester/internal/entity"
)

type staticCookies struct {
	cookies []*http.Cookie
	err     error
}

func (s staticCookies) Cookies(context.Context, string) ([]*http.Cookie, error) {
	return s.cookies, s.err
}

func resumeServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var authed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if c, err := r.Cookie("li_at"); err == nil && c.Value == "token" {
			authed.Add(1)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 resume"))
	}))
	t.Cleanup(srv.Close)
	return srv, &authed
}

func TestDispatch_SavesUnderSerialFolder(t *testing.T) {
	srv, authed := resumeServer(t)
	dir := t.TempDir()
	d, err := NewDispatcher(Config{Dir: dir, Workers: 2}, staticCookies{cookies: []*http.Cookie{{Name: "li_at", Value: "token"}}}, srv.Client(), nil)
	require.NoError(t, err)

	assert.True(t, d.Dispatch(context.Background(), srv.URL+"/resume/1", 7, "José Pérez"))
	d.Close()

	data, err := os.ReadFile(filepath.Join(dir, "resumes", "7", "jose_perez.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 resume", string(data))
	assert.Equal(t, int32(1), authed.Load())
}

func TestDispatch_UniquifiesConflictingNames(t *testing.T) {
	srv, _ := resumeServer(t)
	dir := t.TempDir()
	d, err := NewDispatcher(Config{Dir: dir, Workers: 3}, nil, srv.Client(), nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.True(t, d.Dispatch(context.Background(), srv.URL+"/resume", 4, "Jane Doe"))
	}
	d.Close()

	entries, err := os.ReadDir(filepath.Join(dir, "resumes", "4"))
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, []string{"jane_doe.pdf", "jane_doe (1).pdf", "jane_doe (2).pdf"}, got)
}

func TestDispatch_ResolvesRelativeLinks(t *testing.T) {
	srv, _ := resumeServer(t)
	dir := t.TempDir()
	d, err := NewDispatcher(Config{Dir: dir, BaseURL: srv.URL}, nil, srv.Client(), nil)
	require.NoError(t, err)

	assert.True(t, d.Dispatch(context.Background(), "/ambry/resume", 1, "Ada"))
	d.Close()

	_, err = os.Stat(filepath.Join(dir, "resumes", "1", "ada.pdf"))
	assert.NoError(t, err)
}

func TestDispatch_HTTPErrorLeavesNoFile(t *testing.T) {
	srv, _ := resumeServer(t)
	dir := t.TempDir()
	d, err := NewDispatcher(Config{Dir: dir}, staticCookies{err: errors.New("tab closed")}, srv.Client(), nil)
	require.NoError(t, err)

	assert.True(t, d.Dispatch(context.Background(), srv.URL+"/missing", 2, "Ben"))
	d.Close()

	_, err = os.Stat(filepath.Join(dir, "resumes", "2", "ben.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestDispatch_RejectsUnusableRequests(t *testing.T) {
	d, err := NewDispatcher(Config{Dir: t.TempDir()}, nil, nil, nil)
	require.NoError(t, err)

	assert.False(t, d.Dispatch(context.Background(), "", 1, "Ada"))
	assert.False(t, d.Dispatch(context.Background(), entity.ResumeUnavailable, 1, "Ada"))

	d.Close()
	assert.False(t, d.Dispatch(context.Background(), "https://example.test/r.pdf", 1, "Ada"))
}

func TestNewDispatcher_RequiresDir(t *testing.T) {
	_, err := NewDispatcher(Config{}, nil, nil, nil)
	assert.Error(t, err)
}
