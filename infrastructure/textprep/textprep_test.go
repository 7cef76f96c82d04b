package textprep

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	tests := []struct {
		name  string
		input string
		extra []string
		want  string
	}{
		{"drops script content", "<div>Hello <script>bad()</script> World!</div>", nil, "Hello World!"},
		{"drops code and pre", "Use <code>x := 1</code> and<pre>fmt.Println()</pre> go", nil, "Use and go"},
		{"deleted symbols keep surrounding spaces", "Fish &amp; chips &quot;today&quot;", nil, `Fish  chips "today"`},
		{"block boundaries separate words", "<p>one</p><p>two</p>", nil, "one two"},
		{"inline elements do not split words", "w<b>or</b>d", nil, "word"},
		{"removes disallowed characters", "Price: $5 (approx) #tag", nil, "Price 5 approx tag"},
		{"keeps unicode letters", "Grüße, señor!", nil, "Grüße, señor!"},
		{"extra strip elements", "<p>keep</p><aside>drop</aside>", []string{" ASIDE "}, "keep"},
		{"comments removed", "a<!-- hidden -->b", nil, "ab"},
		{"empty", "   ", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prepare(tt.input, tt.extra, DefaultMaxLength))
		})
	}
}

func TestPrepare_Truncates(t *testing.T) {
	out := Prepare(strings.Repeat("a", 20000), nil, 10000)
	assert.Len(t, out, 10000)

	out = Prepare(strings.Repeat("ä", 50), nil, 10)
	assert.Equal(t, 10, utf8.RuneCountInString(out))

	out = Prepare(strings.Repeat("b", 12000), nil, 0)
	assert.Len(t, out, DefaultMaxLength)
}

func TestPrepare_Deterministic(t *testing.T) {
	input := "<h2>Title</h2><p>Body &lt;text&gt; here.</p>"
	assert.Equal(t, Prepare(input, nil, 100), Prepare(input, nil, 100))
}

func TestRemoveStopWords(t *testing.T) {
	assert.Equal(t, "quick fox", RemoveStopWords("The quick fox", []string{"the"}))
	assert.Equal(t, "theory holds", RemoveStopWords("theory THE holds", []string{"the"}))
	assert.Equal(t, "a b", RemoveStopWords("a x.y b", []string{"x.y", " "}))
	assert.Equal(t, "unchanged text", RemoveStopWords("unchanged text", nil))
}

func TestPreparer(t *testing.T) {
	p := NewPreparer([]string{"aside"}, []string{"and"}, 8000)
	assert.Equal(t, "Cats dogs", p.Prepare("<p>Cats and dogs</p><aside>ad</aside>"))
}

func TestPreparer_BuildsPatternsOnce(t *testing.T) {
	words := []string{"the", " ", "", "and"}
	p := NewPreparer([]string{" ASIDE "}, words, 0)
	require.Len(t, p.stopWords, 2)
	assert.True(t, p.strip["aside"])
	assert.True(t, p.strip["script"])

	words[0] = "quick"
	first := p.stopWords[0]
	assert.Equal(t, "quick fox", p.Prepare("The quick and the fox"))
	assert.Equal(t, "QUICK fox", p.Prepare("<aside>x</aside>the QUICK fox"))
	assert.Same(t, first, p.stopWords[0])
}
