package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Título Épico!!":            "titulo_epico",
		"Hello World":               "hello_world",
		"Rock & Roll: Live (2024)":  "rock__roll_live_2024",
		"already_normalized_name_1": "already_normalized_name_1",
		"Ñandú über café":           "nandu_uber_cafe",
		"Live\tSession\nPart 2":     "live_session_part_2",
		"":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "NormalizeName(%q)", in)
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{"Título Épico!!", "  spaced\tout  ", "ÀÉÎÕÜ-ç", "日本語 title", "x", "snake_case already", "tab\tseparated"}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
	}
}

func TestFileBase(t *testing.T) {
	assert.Equal(t, "song", FileBase("Song", "fallback"))
	assert.Equal(t, "fallback", FileBase("日本語", "fallback"))
}

func TestSelectLanguage(t *testing.T) {
	cases := []struct {
		name      string
		manual    []string
		automatic []string
		requested string
		wantLang  string
		wantAuto  bool
	}{
		{"single manual ignores request", []string{"de"}, []string{"en-orig"}, "es", "de", false},
		{"several manual use request", []string{"de", "fr"}, nil, "es", "es", false},
		{"orig caption wins", nil, []string{"en-orig", "fr"}, "es", "en-orig", true},
		{"no orig falls back to en", nil, []string{"fr"}, "es", "en", true},
		{"nothing at all falls back to en", nil, nil, "es", "en", true},
		{"first orig match", nil, []string{"fr", "pt-orig", "en-orig"}, "", "pt-orig", true},
		{"requested automatic track kept", nil, []string{"en-orig", "fr"}, "fr", "fr", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			lang, auto := SelectLanguage(c.manual, c.automatic, c.requested)
			assert.Equal(t, c.wantLang, lang)
			assert.Equal(t, c.wantAuto, auto)
		})
	}
}

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.000
[Music] Hello there

00:00:02.000 --> 00:00:04.000
Hello there
this is a test.

00:00:04.000 --> 00:00:05.000
<00:00:04.100><c> styled</c>
[Applause]
`

func TestExtractText(t *testing.T) {
	got, err := ExtractText(strings.NewReader(sampleVTT))
	require.NoError(t, err)
	assert.Equal(t, "Hello there Hello there this is a test.\n", got)
}

func TestExtractTextSkipsRepeats(t *testing.T) {
	got, err := ExtractText(strings.NewReader("one\none\ntwo.\n"))
	require.NoError(t, err)
	assert.Equal(t, "one two.\n", got)
}

func TestParseProbeKeepsTrackOrder(t *testing.T) {
	data := []byte(`{
		"id": "abc",
		"title": "Some Video",
		"formats": [{"format_id": "18"}],
		"subtitles": {},
		"automatic_captions": {"fr": [{"ext": "vtt"}], "en-orig": [{"ext": "vtt"}], "de": []}
	}`)
	probe, err := parseProbe(data)
	require.NoError(t, err)
	assert.Equal(t, "Some Video", probe.Title)
	assert.Empty(t, probe.Subtitles)
	assert.Equal(t, []string{"fr", "en-orig", "de"}, probe.AutomaticCaptions)
}

func TestParseProbeNullTracks(t *testing.T) {
	probe, err := parseProbe([]byte(`{"title": null, "subtitles": null}`))
	require.NoError(t, err)
	assert.Empty(t, probe.Title)
	assert.Nil(t, probe.Subtitles)
}

func TestParseProbeRejectsGarbage(t *testing.T) {
	_, err := parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestCookiesFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	full := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	require.NoError(t, os.WriteFile(full, []byte("# Netscape HTTP Cookie File\n"), 0o600))

	ctx := context.Background()
	assert.Empty(t, NewYTDLP(YTDLPOptions{}).cookiesFile(ctx))
	assert.Empty(t, NewYTDLP(YTDLPOptions{CookiesFile: filepath.Join(dir, "missing.txt")}).cookiesFile(ctx))
	assert.Empty(t, NewYTDLP(YTDLPOptions{CookiesFile: empty}).cookiesFile(ctx))
	assert.Equal(t, full, NewYTDLP(YTDLPOptions{CookiesFile: full}).cookiesFile(ctx))
}
