package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesKnownPlaceholders(t *testing.T) {
	out := Render("Dear {{ firstname }} {{lastname}}, see {{  link  }}.", map[string]string{
		"firstname": "David",
		"lastname":  "Hume",
		"link":      "https://example.org/x",
	})
	assert.Equal(t, "Dear David Hume, see https://example.org/x.", out)
}

func TestRenderLeavesUnknownPlaceholdersVerbatim(t *testing.T) {
	out := Render("Hello {{ firstname }}, {{ unknown }} stays.", map[string]string{"firstname": "Ada"})
	assert.Equal(t, "Hello Ada, {{ unknown }} stays.", out)
}

func TestRenderDoesNotEscapeHTML(t *testing.T) {
	out := Render("<p>{{ title }}</p>", map[string]string{"title": "<b>Of Miracles</b> & more"})
	assert.Equal(t, "<p><b>Of Miracles</b> & more</p>", out)
}

func TestRenderIsSinglePass(t *testing.T) {
	out := Render("{{ a }}", map[string]string{"a": "{{ b }}", "b": "nested"})
	assert.Equal(t, "{ b }", out)
	assert.NotContains(t, out, "nested")
}

func TestRenderBoundaryBraces(t *testing.T) {
	out := Render("{{{ a }}}", map[string]string{"a": "{ b }", "b": "x"})
	assert.Empty(t, placeholderPattern.FindAllString(out, -1))
}

func TestRenderEmptyValueBetweenBraces(t *testing.T) {
	vars := map[string]string{"a": "", "title": "x"}
	out := Render("{{{a}}{ title }}", vars)
	assertNoRecognizedPlaceholder(t, out, vars)
	assert.Equal(t, "{ title }}", out)
}

func TestRenderValueBetweenLiteralDelimiters(t *testing.T) {
	vars := map[string]string{"a": "title", "title": "x"}
	out := Render("{{ {{a}} }}", vars)
	assertNoRecognizedPlaceholder(t, out, vars)
	assert.Contains(t, out, "title")
}

func TestRenderRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"{", "}", "{{", "}}", " ", "a", "b", "title", "x", "<p>"}
	pieces := []string{"{", "}", "{{", "}}", " ", "x", "<h1>", "{{ title }}", "{{a}}", "{{ b }}", "{{ other }}", "{ title }", "title"}
	names := []string{"a", "b", "title"}

	for i := 0; i < 2000; i++ {
		vars := map[string]string{}
		for _, name := range names {
			var value string
			for j := 0; j < rng.Intn(8); j++ {
				value += alphabet[rng.Intn(len(alphabet))]
			}
			vars[name] = value
		}
		var template string
		for j := 0; j < 1+rng.Intn(10); j++ {
			template += pieces[rng.Intn(len(pieces))]
		}

		assertNoRecognizedPlaceholder(t, Render(template, vars), vars)
	}
}

func assertNoRecognizedPlaceholder(t *testing.T, out string, vars map[string]string) {
	t.Helper()
	for _, m := range placeholderPattern.FindAllStringSubmatch(out, -1) {
		_, recognized := vars[m[1]]
		assert.False(t, recognized, "output %q re-matches %q", out, m[0])
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"firstname", "link"}, Placeholders("{{ firstname }} {{link}} {{ firstname }}"))
}
