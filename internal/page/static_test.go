package page

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStaticServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<p id="greeting">hola</p>
<a id="next" href="/section/list.php">seccion</a>
</body></html>`)
	})
	mux.HandleFunc("/section/list.php", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><table><tbody><tr><td>fila</td></tr></tbody></table></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestStaticNavigateAndRead(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t)
	browser := NewStatic(StaticConfig{Timeout: 5 * time.Second})
	t.Cleanup(func() { _ = browser.Close() })

	page, err := browser.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	text, err := page.Text(context.Background(), "#greeting")
	require.NoError(t, err)
	require.Equal(t, "hola", text)

	html, err := page.HTML(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "seccion")

	_, err = page.Text(context.Background(), "#absent")
	require.Error(t, err)
}

func TestStaticClickFollowsHref(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t)
	browser := NewStatic(StaticConfig{})
	page, err := browser.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	require.NoError(t, page.Click(context.Background(), `a[href*="list.php"]`))
	require.Contains(t, page.Location(), "/section/list.php")

	html, err := page.HTML(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "fila")

	require.Error(t, page.Click(context.Background(), "#missing"))
}

func TestStaticSelectValueUnsupported(t *testing.T) {
	t.Parallel()

	server := newStaticServer(t)
	browser := NewStatic(StaticConfig{})
	page, err := browser.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	require.Error(t, page.SelectValue(context.Background(), "select", "-1"))
}

func TestStaticNavigateFetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	browser := NewStatic(StaticConfig{})
	_, err := browser.Navigate(context.Background(), server.URL)
	require.Error(t, err)
}
