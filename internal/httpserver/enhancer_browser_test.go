package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"

	"fairytaleparty.co.uk/web/internal/httpserver"
	"fairytaleparty.co.uk/web/internal/testutil"
	"fairytaleparty.co.uk/web/public"
)

type requestLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *requestLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.seen = append(l.seen, r.URL.Path+" "+r.Header.Get("Accept"))
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (l *requestLog) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.seen {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func newBrowser(t *testing.T) *rod.Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no chromium binary found")
	}
	url, err := launcher.New().Bin(bin).Headless(true).Launch()
	if err != nil {
		t.Skipf("launch browser: %v", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		t.Skipf("connect browser: %v", err)
	}
	t.Cleanup(func() { _ = browser.Close() })
	return browser
}

func newLoggedServer(t *testing.T) (*httptest.Server, *requestLog) {
	t.Helper()
	static, err := public.StaticFS()
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Config{
		Renderer: testutil.NewRenderer(t),
		Static:   static,
	})
	log := &requestLog{}
	ts := httptest.NewServer(log.wrap(srv.Handler))
	t.Cleanup(ts.Close)
	return ts, log
}

func TestEnhancerLoadsAboutInPlace(t *testing.T) {
	browser := newBrowser(t)
	ts, log := newLoggedServer(t)

	page := browser.MustPage(ts.URL + "/").Timeout(10 * time.Second)
	page.MustWaitLoad()

	page.MustElement("#about_link a").MustClick()
	page.MustElement("#content #about")

	require.Equal(t, ts.URL+"/", page.MustInfo().URL, "default navigation must be suppressed")
	require.Equal(t, 1, log.count("/about text/javascript"))
	require.Equal(t, 1, log.count("/about "), "exactly one request to the link target")
	require.Equal(t, "About Us | Fairytale Party", page.MustEval(`() => document.title`).Str())
	require.True(t, page.MustEval(`() => document.getElementById("about_link").className === "current"`).Bool())
	require.False(t, page.MustEval(`() => document.getElementById("home_link").className === "current"`).Bool())
}

func TestEnhancerFadesHomeContainer(t *testing.T) {
	browser := newBrowser(t)
	ts, _ := newLoggedServer(t)

	page := browser.MustPage(ts.URL + "/").Timeout(10 * time.Second)
	page.MustElement(`#home .mini_container[data-faded="true"]`)

	opacity := page.MustEval(`() => getComputedStyle(document.querySelector("#home .mini_container")).opacity`).Str()
	require.Equal(t, "0.8", opacity)
	display := page.MustEval(`() => getComputedStyle(document.querySelector("#home .mini_container")).display`).Str()
	require.NotEqual(t, "none", display)
}

func TestEnhancerReplacesDefaultInputValues(t *testing.T) {
	browser := newBrowser(t)
	ts, _ := newLoggedServer(t)

	page := browser.MustPage(ts.URL + "/pages/contact").Timeout(10 * time.Second)
	page.MustWaitLoad()

	got := page.MustEval(`() => {
		const input = document.querySelector("input[name=name]");
		input.dispatchEvent(new FocusEvent("focus"));
		const focused = input.value;
		input.dispatchEvent(new FocusEvent("blur"));
		const restored = input.value;
		input.value = "Aurora";
		input.dispatchEvent(new FocusEvent("focus"));
		return focused + "|" + restored + "|" + input.value;
	}`).Str()
	require.Equal(t, "|Your name|Aurora", got)
}

func TestEnhancerFallsBackOnFailedFetch(t *testing.T) {
	browser := newBrowser(t)
	ts, log := newLoggedServer(t)

	page := browser.MustPage(ts.URL + "/").Timeout(10 * time.Second)
	page.MustWaitLoad()

	wait := page.MustWaitNavigation()
	page.MustEval(`() => { window.FairytaleParty.loadAsync("/pages/missing") }`)
	wait()

	require.Equal(t, ts.URL+"/pages/missing", page.MustInfo().URL)
	require.Equal(t, 1, log.count("/pages/missing text/javascript"))
}
