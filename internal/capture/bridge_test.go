package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/walletbridge/internal/config"
)

func testConfig(scriptURL string) config.CaptureConfig {
	return config.CaptureConfig{
		ScriptURL:    scriptURL,
		EndpointBase: "https://mcp.figma.com/mcp",
	}
}

// recorder collects every event an emitter fires.
type recorder struct {
	events []string
}

func (r *recorder) watch(e *Emitter) {
	for _, ev := range []Event{EventSubmitted, EventClaimURL, EventNextID, EventFigmaURL} {
		ev := ev
		e.On(ev, func(payload string) {
			r.events = append(r.events, fmt.Sprintf("%s|%s", ev, payload))
		})
	}
}

func TestSubmit(t *testing.T) {
	t.Run("posts json and parses claimUrl and nextCaptureId", func(t *testing.T) {
		var gotBody, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			gotContentType = r.Header.Get("Content-Type")
			fmt.Fprint(w, `{"claimUrl":"https://figma.com/file/XYZ","nextCaptureId":"u-2"}`)
		}))
		defer server.Close()

		b := New(testConfig(""), "u-1", nil)
		rec := &recorder{}
		rec.watch(b.Events())

		text, err := b.Submit(context.Background(), server.URL, `{"nodes":[]}`)
		require.NoError(t, err)
		assert.Equal(t, `{"claimUrl":"https://figma.com/file/XYZ","nextCaptureId":"u-2"}`, text)
		assert.Equal(t, `{"nodes":[]}`, gotBody)
		assert.Contains(t, gotContentType, "application/json")

		require.Equal(t, []string{
			`capture:submitted|{"claimUrl":"https://figma.com/file/XYZ","nextCaptureId":"u-2"}`,
			"capture:claimUrl|https://figma.com/file/XYZ",
			"capture:nextId|u-2",
		}, rec.events)
	})

	t.Run("non-json body falls back to the figma url regex", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `done! view at https://www.figma.com/file/ABC123/capture now`)
		}))
		defer server.Close()

		b := New(testConfig(""), "u-1", nil)
		rec := &recorder{}
		rec.watch(b.Events())

		_, err := b.Submit(context.Background(), server.URL, "{}")
		require.NoError(t, err)
		require.Len(t, rec.events, 2)
		assert.Contains(t, rec.events[0], "capture:submitted|")
		assert.Equal(t, "capture:claimUrl|https://www.figma.com/file/ABC123/capture", rec.events[1])
	})

	t.Run("json without claim fields emits only submitted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"pending"}`)
		}))
		defer server.Close()

		b := New(testConfig(""), "u-1", nil)
		rec := &recorder{}
		rec.watch(b.Events())

		_, err := b.Submit(context.Background(), server.URL, "{}")
		require.NoError(t, err)
		require.Len(t, rec.events, 1)
	})

	t.Run("network failure returns an error and emits nothing", func(t *testing.T) {
		b := New(testConfig(""), "u-1", nil)
		rec := &recorder{}
		rec.watch(b.Events())

		_, err := b.Submit(context.Background(), "http://127.0.0.1:1", "{}")
		require.Error(t, err)
		assert.Empty(t, rec.events)
	})
}

func TestObservePopup(t *testing.T) {
	b := New(testConfig(""), "u-1", nil)
	rec := &recorder{}
	rec.watch(b.Events())

	b.ObservePopup("")
	b.ObservePopup("about:blank")
	b.ObservePopup("https://example.com/page")
	b.ObservePopup("https://www.figma.com/file/XYZ")
	b.ObservePopup("https://www.figma.com/file/XYZ") // duplicate
	b.ObservePopup("https://figma.com/file/OTHER")

	assert.Equal(t, []string{
		"capture:figmaUrl|https://www.figma.com/file/XYZ",
		"capture:figmaUrl|https://figma.com/file/OTHER",
	}, rec.events)
}

// fakePage records every script the bridge evaluates.
type fakePage struct {
	scripts []string
	fail    bool
}

func (p *fakePage) Evaluate(_ context.Context, script string) error {
	if p.fail {
		return fmt.Errorf("page gone")
	}
	p.scripts = append(p.scripts, script)
	return nil
}

func TestInjectToolbar(t *testing.T) {
	t.Run("fetches, injects, interposes, and invokes in order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `window.captureForDesign = function () {};`)
		}))
		defer server.Close()

		b := New(testConfig(server.URL), "u-7", nil)
		page := &fakePage{}
		result := b.InjectToolbar(context.Background(), page)

		require.True(t, result.Success, result.Error)
		require.Len(t, page.scripts, 3)
		assert.Equal(t, `window.captureForDesign = function () {};`, page.scripts[0])
		assert.Contains(t, page.scripts[1], "__wbFetchPatched")
		assert.Contains(t, page.scripts[2], `captureId: "u-7"`)
		assert.Contains(t, page.scripts[2], `https://mcp.figma.com/mcp/capture/u-7/submit`)
		assert.Contains(t, page.scripts[2], `selector: 'body'`)
	})

	t.Run("script fetch failure reports without touching the page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		b := New(testConfig(server.URL), "u-7", nil)
		b.fetcher.RetryMax = 0
		page := &fakePage{}
		result := b.InjectToolbar(context.Background(), page)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "script fetch failed")
		assert.Empty(t, page.scripts)
	})

	t.Run("page evaluation failure is reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `// toolbar`)
		}))
		defer server.Close()

		b := New(testConfig(server.URL), "u-7", nil)
		result := b.InjectToolbar(context.Background(), &fakePage{fail: true})
		assert.False(t, result.Success)
	})
}

// interposerHarness gives the interposer the window surface it expects.
const interposerHarness = `
var submitted = [];
var originalCalls = 0;
function originalFetch() { originalCalls++; return 'original-response'; }
var window = {
  fetch: originalFetch,
  __submitCapture: function (url, body) {
    submitted.push({ url: url, body: body });
    return Promise.resolve('{"claimUrl":"https://figma.com/file/X"}');
  },
};
function Response(text, opts) {
  this.bodyText = text;
  this.status = opts && opts.status;
  this.headers = (opts && opts.headers) || {};
}
`

func TestInterposer(t *testing.T) {
	t.Run("is idempotent across double injection", func(t *testing.T) {
		vm := goja.New()
		_, err := vm.RunString(interposerHarness)
		require.NoError(t, err)

		_, err = vm.RunString(interposerJS)
		require.NoError(t, err)
		wrapped, err := vm.RunString(`window.fetch`)
		require.NoError(t, err)

		_, err = vm.RunString(interposerJS)
		require.NoError(t, err)
		stillWrapped, err := vm.RunString(`window.fetch`)
		require.NoError(t, err)

		assert.True(t, wrapped.SameAs(stillWrapped), "second injection must not stack another wrapper")
	})

	t.Run("routes figma submissions through the host", func(t *testing.T) {
		vm := goja.New()
		_, err := vm.RunString(interposerHarness)
		require.NoError(t, err)
		_, err = vm.RunString(interposerJS)
		require.NoError(t, err)

		_, err = vm.RunString(`
			var response;
			window.fetch('https://mcp.figma.com/mcp/capture/u-1/submit', { body: '{"n":1}' })
				.then(function (r) { response = r; });
		`)
		require.NoError(t, err)

		v, err := vm.RunString(`submitted.length`)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.ToInteger())
		v, err = vm.RunString(`submitted[0].body`)
		require.NoError(t, err)
		assert.Equal(t, `{"n":1}`, v.String())
		v, err = vm.RunString(`response.status`)
		require.NoError(t, err)
		assert.Equal(t, int64(200), v.ToInteger())
		v, err = vm.RunString(`originalCalls`)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v.ToInteger())
	})

	t.Run("delegates non-figma requests to the original fetch", func(t *testing.T) {
		vm := goja.New()
		_, err := vm.RunString(interposerHarness)
		require.NoError(t, err)
		_, err = vm.RunString(interposerJS)
		require.NoError(t, err)

		v, err := vm.RunString(`window.fetch('https://app.example.com/api')`)
		require.NoError(t, err)
		assert.Equal(t, "original-response", v.String())

		v, err = vm.RunString(`originalCalls`)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.ToInteger())
	})
}
