package render

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/layout"
	"github.com/roach88/upgradeviz/internal/testutil"
)

// element is a start tag seen while walking a document.
type element struct {
	name  string
	attrs map[string]string
	text  string
}

// walk parses doc with encoding/xml, failing the test on malformed input,
// and returns every element in document order.
func walk(t *testing.T, doc string) []element {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))

	var out []element
	var stack []int
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err, "document is not well-formed")

		switch tk := tok.(type) {
		case xml.StartElement:
			el := element{name: tk.Name.Local, attrs: map[string]string{}}
			for _, a := range tk.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			out = append(out, el)
			stack = append(stack, len(out)-1)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				out[stack[len(stack)-1]].text += string(tk)
			}
		}
	}
	return out
}

func find(els []element, pred func(element) bool) []element {
	var out []element
	for _, el := range els {
		if pred(el) {
			out = append(out, el)
		}
	}
	return out
}

func hasClass(class string) func(element) bool {
	return func(el element) bool {
		for _, c := range strings.Fields(el.attrs["class"]) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func renderSnapshot(t *testing.T, snap ir.Snapshot) string {
	t.Helper()
	chart := config.Default().Chart
	l := layout.Compute(snap, layout.OptionsFor(chart, time.Time{}))

	var buf bytes.Buffer
	require.NoError(t, New(chart).Render(&buf, l))
	return buf.String()
}

func twoEntitySnapshot() ir.Snapshot {
	return ir.Snapshot{
		Records: []ir.IntervalRecord{
			{
				Entity: "gw-a", Start: testutil.At(time.Minute), End: testutil.At(5 * time.Minute),
				StartKind: ir.StartExplicit, Status: ir.StatusComplete,
				PrevVersion: "8.0", CurrVersion: "9.0", TargetVersion: "9.0",
			},
			{
				Entity: "gw-b & <friends>", Start: testutil.At(2 * time.Minute),
				StartKind: ir.StartInstalling, Status: ir.StatusInProgress,
			},
			{
				Entity: "gw-c", Start: testutil.At(3 * time.Minute), End: testutil.At(3 * time.Minute),
				StartKind: ir.StartRetroactive, Status: ir.StatusComplete,
			},
		},
		Overall:  ir.OverallWindow{Start: testutil.At(0)},
		LastSeen: testutil.At(6 * time.Minute),
	}
}

func TestRender_Document(t *testing.T) {
	doc := renderSnapshot(t, twoEntitySnapshot())
	els := walk(t, doc)

	root := els[0]
	assert.Equal(t, "svg", root.name)
	assert.Equal(t, "false", root.attrs["data-empty"])
	assert.Equal(t, "1200", root.attrs["width"])
	assert.Equal(t, "800", root.attrs["height"])

	bars := find(els, hasClass("bar"))
	require.Len(t, bars, 3)
	assert.Equal(t, "gw-a", bars[0].attrs["data-entity"])
	assert.Equal(t, "gw-b & <friends>", bars[1].attrs["data-entity"])
	assert.Equal(t, "gw-c", bars[2].attrs["data-entity"])

	assert.Equal(t, "#28a745", bars[0].attrs["fill"])
	assert.Equal(t, "#ffc107", bars[1].attrs["fill"])
	assert.Equal(t, "240.0", bars[0].attrs["data-duration-s"])
	assert.Equal(t, "4.00", bars[0].attrs["data-duration-m"])
	assert.Equal(t, "0.067", bars[0].attrs["data-duration-h"])
	assert.Equal(t, "8.0", bars[0].attrs["data-prev-version"])
	assert.Equal(t, "", bars[1].attrs["data-end"])
	assert.Equal(t, "retroactive", bars[2].attrs["data-start-kind"])
	assert.Equal(t, "2", bars[2].attrs["width"], "zero-width records stay visible")

	titles := find(els, func(el element) bool { return el.name == "title" })
	require.Len(t, titles, 3)
	assert.Contains(t, titles[0].text, "Gateway: gw-a")
	assert.Contains(t, titles[0].text, "Duration: 4.0m")
	assert.Contains(t, titles[0].text, "Version: 8.0 -> 9.0")
	assert.Contains(t, titles[1].text, "Status: In Progress")
	assert.Contains(t, titles[2].text, "no start observed")

	labels := find(els, hasClass("time-label"))
	assert.GreaterOrEqual(t, len(labels), 5)
	assert.LessOrEqual(t, len(labels), 15)

	viewport := find(els, func(el element) bool { return el.attrs["id"] == "viewport" })
	require.Len(t, viewport, 1)
	assert.Equal(t, "matrix(1 0 0 1 0 0)", viewport[0].attrs["transform"])

	tooltip := find(els, func(el element) bool { return el.attrs["id"] == "tooltip" })
	require.Len(t, tooltip, 1)
	assert.Equal(t, "hidden", tooltip[0].attrs["visibility"])

	scripts := find(els, func(el element) bool { return el.name == "script" })
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0].text, "function zoomAt")
}

func TestRender_OpenBarReachesRightEdge(t *testing.T) {
	els := walk(t, renderSnapshot(t, twoEntitySnapshot()))
	bars := find(els, hasClass("bar-in-progress"))
	require.Len(t, bars, 1)

	// Range is [0, 6m] over a 950px plot; gw-b starts at 2m.
	assert.Equal(t, "316.67", bars[0].attrs["x"])
	assert.Equal(t, "633.33", bars[0].attrs["width"])
}

func TestRender_Empty(t *testing.T) {
	doc := renderSnapshot(t, ir.Snapshot{})
	els := walk(t, doc)

	assert.Equal(t, "true", els[0].attrs["data-empty"])
	empty := find(els, hasClass("empty"))
	require.Len(t, empty, 1)
	assert.Equal(t, EmptyMessage, empty[0].text)
	assert.Empty(t, find(els, hasClass("bar")))
}

func TestRender_TallChartGrows(t *testing.T) {
	var snap ir.Snapshot
	for i := 0; i < 100; i++ {
		snap.Records = append(snap.Records, ir.IntervalRecord{
			Entity: "gw-" + strings.Repeat("x", i%30), Start: testutil.At(time.Duration(i) * time.Second),
			StartKind: ir.StartExplicit, Status: ir.StatusInProgress,
		})
	}
	snap.LastSeen = testutil.At(time.Hour)

	els := walk(t, renderSnapshot(t, snap))
	assert.Equal(t, "2340", els[0].attrs["height"]) // 60 + 100*22 + 80
}

func TestRender_WriterError(t *testing.T) {
	chart := config.Default().Chart
	err := New(chart).Render(failingWriter{}, layout.Layout{})
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "gw-1", TruncateLabel("gw-1", 25))
	assert.Equal(t, "gw-us-east-1-extremely-l...", TruncateLabel("gw-us-east-1-extremely-long-gateway-name", 27))
	assert.Equal(t, "abcdefghijklmnopqrstuv...", TruncateLabel(strings.Repeat("abcdefghijklmnopqrstuvwxyz", 2), 25))
	assert.Len(t, []rune(TruncateLabel(strings.Repeat("é", 40), 25)), 25)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "42.0s", HumanDuration(42*time.Second))
	assert.Equal(t, "4.5m", HumanDuration(4*time.Minute+30*time.Second))
	assert.Equal(t, "1.5h", HumanDuration(90*time.Minute))
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", escapeXML(`a & b <c> "d" 'e'`))
	assert.Equal(t, "bell", escapeXML("be\x07ll"))
	assert.Equal(t, "ok", escapeXML("o\xffk"))
}

func TestCDATASafe(t *testing.T) {
	assert.Equal(t, "a]]]]><![CDATA[>b", cdataSafe("a]]>b"))
	assert.NotContains(t, viewportJS, "]]>")
}
