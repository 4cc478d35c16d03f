package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_SuggestsEdit(t *testing.T) {
	s := Analyze(`sed -i 's/foo/bar/' main.go`)
	require.NotNil(t, s)
	assert.Equal(t, "Edit", s.Tool)
	assert.Contains(t, s.Reason, "COACHING")

	s = Analyze(`awk '{print $1}' in.txt > out.txt`)
	require.NotNil(t, s)
	assert.Equal(t, "Edit", s.Tool)
}

func TestAnalyze_SedWithoutInPlaceIsFine(t *testing.T) {
	assert.Nil(t, Analyze(`sed 's/foo/bar/' main.go`))
	assert.Nil(t, Analyze(`awk '{print $1}' in.txt`))
}

func TestAnalyze_SuggestsWrite(t *testing.T) {
	s := Analyze(`echo "hello" > greeting.txt`)
	require.NotNil(t, s)
	assert.Equal(t, "Write", s.Tool)

	s = Analyze(`printf '%s\n' data >> log.txt`)
	require.NotNil(t, s)
	assert.Equal(t, "Write", s.Tool)

	s = Analyze("cat <<EOF > config.yaml\nkey: value\nEOF")
	require.NotNil(t, s)
	assert.Equal(t, "Write", s.Tool)
}

func TestAnalyze_EchoWithoutRedirectIsFine(t *testing.T) {
	assert.Nil(t, Analyze(`echo "hello"`))
}

func TestAnalyze_SuggestsRead(t *testing.T) {
	s := Analyze(`cat main.go`)
	require.NotNil(t, s)
	assert.Equal(t, "Read", s.Tool)

	s = Analyze(`tail -n 20 server.log`)
	require.NotNil(t, s)
	assert.Equal(t, "Read", s.Tool)
}

func TestAnalyze_PipedCatIsFine(t *testing.T) {
	assert.Nil(t, Analyze(`cat main.go | wc -l`))
	assert.Nil(t, Analyze(`git log --oneline | head -50`))
}

func TestAnalyze_HeadWithOnlyFlagsIsFine(t *testing.T) {
	// Flags only means the input is piped in by the host shell.
	assert.Nil(t, Analyze(`head -50`))
}

func TestAnalyze_SuggestsGrep(t *testing.T) {
	s := Analyze(`grep -rn "TODO" .`)
	require.NotNil(t, s)
	assert.Equal(t, "Grep", s.Tool)

	assert.Nil(t, Analyze(`grep "TODO" main.go`), "single-file grep is fine")
}

func TestAnalyze_SuggestsGlob(t *testing.T) {
	s := Analyze(`find . -name "*.go"`)
	require.NotNil(t, s)
	assert.Equal(t, "Glob", s.Tool)

	assert.Nil(t, Analyze(`find . -mtime -1`), "non-name find is fine")
}

func TestAnalyze_HarmlessCommands(t *testing.T) {
	for _, cmd := range []string{
		`ls -la`,
		`go test ./...`,
		`git status`,
		`make build`,
	} {
		assert.Nil(t, Analyze(cmd), cmd)
	}
}

func TestAnalyze_UnparseableCommand(t *testing.T) {
	assert.Nil(t, Analyze(`echo "unclosed`))
	assert.Nil(t, Analyze(``))
}

func TestAnalyze_QuotingUnderstood(t *testing.T) {
	// The redirect character inside quotes is data, not a redirect.
	assert.Nil(t, Analyze(`echo "a > b"`))
}
