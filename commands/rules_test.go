package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fb2html/config"
)

func TestWriteRules(t *testing.T) {

	drop := ""
	env := newEnv(t)
	env.Cfg.Converter.ClassPrefix = "x-"
	env.Cfg.Converter.Rules = []config.Rule{{From: "binary", To: &drop}}

	var buf bytes.Buffer
	require.NoError(t, writeRules(&buf, activeConverter(env).TagTranslate()))

	table := make(map[string][]string)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for _, l := range lines {
		f := strings.Fields(l)
		require.Len(t, f, 4, l)
		table[f[0]] = f[1:]
	}

	assert.Len(t, lines, 28)
	assert.Equal(t, []string{"FROM", "TO", "CLASS", "HANDLER"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"binary", "(drop)", "-", "-"}, strings.Fields(lines[1]), "extra rules go first")
	assert.Equal(t, []string{"div", "x-epigraph", "-"}, table["epigraph"])
	assert.Equal(t, []string{"(same)", "-", "a"}, table["a"])
	assert.Equal(t, []string{"img", "-", "img"}, table["image"])
	assert.Equal(t, []string{"div", "date", "-"}, table["date"])
}
