package decoder

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRoundTrip(t *testing.T) {
	b := DefaultLinkBuilder()
	bundle := Bundle{ConflictTag: "Bocado indigesto"}
	inputs := []string{
		"Me duele la cabeza",
		"dolor & ardor + 100% ¿por qué?",
		"riñón / hígado #2 = {symptom}",
	}
	for _, input := range inputs {
		link := b.Build(input, bundle)
		parsed, err := url.Parse(link)
		require.NoError(t, err, input)
		assert.Equal(t, "wa.me", parsed.Host)
		assert.Equal(t, "/"+DefaultRecipient, parsed.Path)
		assert.Equal(t, b.Message(input, bundle), parsed.Query().Get("text"), input)
		assert.NotContains(t, parsed.RawQuery, "+", "spaces must be %20")
	}
}

func TestMessageUppercasesInputAndTag(t *testing.T) {
	b := LinkBuilder{Template: "S={symptom} C={conflict}"}
	msg := b.Message("me duele la cabeza", Bundle{ConflictTag: "Desvalorización intelectual"})
	assert.Equal(t, "S=ME DUELE LA CABEZA C=DESVALORIZACIÓN INTELECTUAL", msg)

	// user text is never treated as a format string
	msg = b.Message("100%s {conflict}", Bundle{ConflictTag: "x"})
	assert.Equal(t, "S=100%S {CONFLICT} C=X", msg)
}

func TestEndToEndHeadache(t *testing.T) {
	c := DefaultClassifier()
	b := DefaultLinkBuilder()
	input := "Me duele la cabeza"

	bundle := c.Classify(input)
	require.Equal(t, "Desvalorización Intelectual", bundle.Title)

	link := b.Build(input, bundle)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/523331155895?text="))
	assert.Contains(t, link, "CABEZA")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	text := parsed.Query().Get("text")
	assert.Contains(t, text, "ME DUELE LA CABEZA")
	assert.Contains(t, text, strings.ToUpper(bundle.ConflictTag))
}

func TestContactLinkDefaults(t *testing.T) {
	assert.Equal(t, "https://wa.me/523331155895", LinkBuilder{}.Contact())
	assert.Equal(t, "https://example.test/42", LinkBuilder{BaseURL: "https://example.test/", Recipient: "42"}.Contact())
}
