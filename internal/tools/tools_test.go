package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/sandbox"
)

type fakeTool struct {
	name string
	out  string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake" }
func (f *fakeTool) Execute(context.Context, string) (string, error) {
	return f.out, nil
}

func TestRegistryRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "alpha", out: "a"})
	r.Register(&fakeTool{name: "beta", out: "b"})

	out, err := r.Execute(context.Background(), "beta", "")
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	_, err = r.Execute(context.Background(), "gamma", "")
	assert.Error(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, r.Names())
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "alpha", out: "old"})
	r.Register(&fakeTool{name: "alpha", out: "new"})

	out, err := r.Execute(context.Background(), "alpha", "")
	require.NoError(t, err)
	assert.Equal(t, "new", out)
	assert.Equal(t, []string{"alpha"}, r.Names())
}

func TestRegistryFindSpecialist(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: "web_browser"})
	r.Register(&fakeTool{name: "Specialist_Summarization_Expert", out: "summary"})

	tool, ok := r.FindSpecialist("summarization")
	require.True(t, ok)
	assert.Equal(t, "Specialist_Summarization_Expert", tool.Name())

	_, ok = r.FindSpecialist("translation")
	assert.False(t, ok)

	assert.Equal(t, []string{"Specialist_Summarization_Expert"}, r.Specialists())
}

func TestBrowserExtractsAndTruncates(t *testing.T) {
	long := strings.Repeat("あ", MaxPageChars+100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><head><script>junk()</script></head><body><h1>Title</h1><p>%s</p></body></html>", long)
	}))
	defer srv.Close()

	b := NewBrowserTool()
	out, err := b.Execute(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.NotContains(t, out, "junk()")
	assert.True(t, strings.HasSuffix(out, "...(truncated)"))
	assert.LessOrEqual(t, len([]rune(out)), MaxPageChars+len([]rune("\n...(truncated)")))
}

func TestBrowserErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewBrowserTool()
	_, err := b.Execute(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	html := `<div>hello &amp; <b>world</b><style>p{}</style></div>`
	assert.Equal(t, "hello &\nworld", ExtractText(html))
}

func TestSearchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "golang", r.Form.Get("q"))
		fmt.Fprint(w, `<a class="result__a" href="https://go.dev">The <b>Go</b> Programming Language</a>`)
	}))
	defer srv.Close()

	s := NewSearchTool()
	s.endpoint = srv.URL

	out, err := s.Execute(context.Background(), "golang")
	require.NoError(t, err)
	assert.Contains(t, out, "The Go Programming Language")
	assert.Contains(t, out, "https://go.dev")
}

func TestSimulationRecordsInsight(t *testing.T) {
	var recorded string
	sim := NewSimulationTool(func(s string) { recorded = s })

	out, err := sim.Execute(context.Background(), "20, 45")
	require.NoError(t, err)
	assert.Contains(t, out, "到達距離")
	assert.Equal(t, out, recorded)
}

func TestSimulationRejectsBadInput(t *testing.T) {
	sim := NewSimulationTool(nil)
	_, err := sim.Execute(context.Background(), "not numbers")
	assert.Error(t, err)
	_, err = sim.Execute(context.Background(), "10,95")
	assert.Error(t, err)
}

func TestCodeExecutionShapesResults(t *testing.T) {
	dir := t.TempDir()
	mgr := sandbox.NewManager(func() (sandbox.Transport, error) {
		return sandbox.NewLocalTransport()
	}, filepath.Join(dir, "commands.jsonl"))
	defer mgr.StopSandbox()

	tool := NewCodeExecutionTool(mgr)
	out, err := tool.Execute(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")

	out, err = tool.Execute(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Contains(t, out, "終了コード 3")
}
