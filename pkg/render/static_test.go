package render

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ticket-hunter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Lakers vs Bucks Tickets</title>
    <script>var price = "$999.00";</script>
</head>
<body>
    <h1>Lakers vs Bucks</h1>
    <div class="listing">Section 101 from $145.00</div>
    <div class="listing">Section 204 from $210.00</div>
</body>
</html>
`

const attributePricePage = `
<html>
<head><title>Event</title></head>
<body><div data-price="£80.00">Best seats</div></body>
</html>
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/event":
			fmt.Fprint(w, listingPage)
		case "/attr":
			fmt.Fprint(w, attributePricePage)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, listingPage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func openStatic(t *testing.T) Session {
	t.Helper()
	sess, err := NewStatic(Options{}, logger.NewNop()).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestStatic_ReadsVisibleText(t *testing.T) {
	ts := newServer(t)
	sess := openStatic(t)

	require.NoError(t, sess.Navigate(ts.URL+"/event", time.Second))
	require.NoError(t, sess.Settle(time.Hour))

	text, err := sess.ReadText()
	require.NoError(t, err)
	assert.Contains(t, text, "Section 101 from $145.00")
	assert.NotContains(t, text, "$999.00")

	title, err := sess.Title()
	require.NoError(t, err)
	assert.Equal(t, "Lakers vs Bucks Tickets", title)
}

func TestStatic_FallsBackToMarkup(t *testing.T) {
	ts := newServer(t)
	sess := openStatic(t)

	require.NoError(t, sess.Navigate(ts.URL+"/attr", time.Second))

	text, err := sess.ReadText()
	require.NoError(t, err)
	assert.Contains(t, text, `data-price="£80.00"`)
}

func TestStatic_NavigationTimeout(t *testing.T) {
	ts := newServer(t)
	sess := openStatic(t)

	err := sess.Navigate(ts.URL+"/slow", 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationTimeout)
}

func TestStatic_NotFound(t *testing.T) {
	ts := newServer(t)
	sess := openStatic(t)

	err := sess.Navigate(ts.URL+"/missing", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNavigationTimeout)
}

func TestStatic_Artifacts(t *testing.T) {
	ts := newServer(t)
	sess := openStatic(t)
	dir := t.TempDir()

	assert.ErrorIs(t, sess.DumpMarkup(filepath.Join(dir, "before.html")), ErrNoPage)

	require.NoError(t, sess.Navigate(ts.URL+"/event", time.Second))
	require.NoError(t, sess.DumpMarkup(filepath.Join(dir, "errors", "page.html")))
	assert.ErrorIs(t, sess.Screenshot(filepath.Join(dir, "shot.png")), ErrUnsupported)
	assert.ErrorIs(t, sess.Scroll("800"), ErrUnsupported)

	data, err := os.ReadFile(filepath.Join(dir, "errors", "page.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Lakers vs Bucks")
}
