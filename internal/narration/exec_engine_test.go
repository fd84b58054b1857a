package narration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const voicesTable = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  en-us           --/M      English_(America)  gmw/en-US            (en 2)
 5  pt-BR           --/M      Portuguese_(Brazil) roa/pt-BR           (pt 5)
 5  pt              --/M      Portuguese_(Portugal) roa/pt            (pt-PT 5)
`

func TestParseVoices(t *testing.T) {
	voices := parseVoices([]byte(voicesTable))

	require.Len(t, voices, 3)
	assert.Equal(t, Voice{Name: "English_(America)", Lang: "en-us"}, voices[0])
	assert.Equal(t, Voice{Name: "Portuguese_(Brazil)", Lang: "pt-BR"}, voices[1])
	assert.Empty(t, parseVoices(nil))
}

func TestSpeakArgs(t *testing.T) {
	tests := []struct {
		name string
		u    Utterance
		want []string
	}{
		{
			name: "voice wins over lang",
			u:    Utterance{Lang: "pt-BR", Rate: 0.9, Voice: &Voice{Name: "Portuguese", Lang: "pt"}},
			want: []string{"-v", "pt", "-s", "158", "--stdin"},
		},
		{
			name: "engine default voice",
			u:    Utterance{Lang: "pt-BR", Rate: 1},
			want: []string{"-v", "pt-BR", "-s", "175", "--stdin"},
		},
		{
			name: "no language",
			u:    Utterance{},
			want: []string{"-s", "175", "--stdin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, speakArgs(tt.u))
		})
	}
}

// fakeBinary writes a shell script standing in for espeak-ng.
func fakeBinary(t *testing.T, body string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script binary")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tts")
	script := "#!/bin/sh\nDIR=$(dirname \"$0\")\nif [ \"$1\" = \"--voices\" ]; then\ncat <<'VOICES'\n" +
		voicesTable + "VOICES\nexit 0\nfi\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, dir
}

func waitDone(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("utterance did not finish")
		return nil
	}
}

func TestExecEngine_SpeakAndVoices(t *testing.T) {
	bin, dir := fakeBinary(t, "echo \"$@\" > \"$DIR/args\"\ncat > \"$DIR/stdin\"\n")
	engine := NewExecEngine(bin)

	select {
	case <-engine.VoicesReady():
	case <-time.After(5 * time.Second):
		t.Fatal("voices never became ready")
	}
	assert.Len(t, engine.Voices(), 3)

	done := make(chan error, 1)
	engine.Speak(context.Background(), Utterance{Text: "Olá, mundo.", Lang: "pt-BR", Rate: 0.9}, func(err error) { done <- err })
	require.NoError(t, waitDone(t, done))

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)
	assert.Equal(t, "-v pt-BR -s 158 --stdin\n", string(args))

	stdin, err := os.ReadFile(filepath.Join(dir, "stdin"))
	require.NoError(t, err)
	assert.Equal(t, "Olá, mundo.", string(stdin))
}

func TestExecEngine_Cancel(t *testing.T) {
	bin, _ := fakeBinary(t, "exec sleep 30\n")
	engine := NewExecEngine(bin)

	done := make(chan error, 1)
	engine.Speak(context.Background(), Utterance{Text: "longo"}, func(err error) { done <- err })
	engine.Cancel()

	assert.ErrorIs(t, waitDone(t, done), ErrCanceled)
}

func TestExecEngine_Failure(t *testing.T) {
	bin, _ := fakeBinary(t, "echo 'no audio device' >&2\nexit 3\n")
	engine := NewExecEngine(bin)

	done := make(chan error, 1)
	engine.Speak(context.Background(), Utterance{Text: "x"}, func(err error) { done <- err })

	err := waitDone(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio device")
}

func TestExecEngine_MissingBinary(t *testing.T) {
	engine := NewExecEngine(filepath.Join(t.TempDir(), "missing"))

	<-engine.VoicesReady()
	assert.Empty(t, engine.Voices())

	var got error
	engine.Speak(context.Background(), Utterance{Text: "x"}, func(err error) { got = err })
	assert.Error(t, got)
}
