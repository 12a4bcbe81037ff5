package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex(t *testing.T) {
	t.Run("tokens", func(t *testing.T) {
		toks, err := lex("MATCH (a:`Film Noir`)-->(b) WHERE a.x <> 'it\\'s' AND b.y >= -2.5 RETURN a")
		require.NoError(t, err)

		var texts []string
		var kinds []tokenKind
		for _, tok := range toks {
			texts = append(texts, tok.text)
			kinds = append(kinds, tok.kind)
		}
		assert.Equal(t, []string{
			"MATCH", "(", "a", ":", "Film Noir", ")", "-", "-", ">", "(", "b", ")",
			"WHERE", "a", ".", "x", "<>", "it's", "AND", "b", ".", "y", ">=", "-", "2.5",
			"RETURN", "a", "",
		}, texts)
		assert.Equal(t, tokString, kinds[17])
		assert.Equal(t, tokNumber, kinds[24])
		assert.Equal(t, tokEOF, kinds[len(kinds)-1])
		assert.True(t, toks[4].quoted)
	})

	t.Run("keywords are case insensitive unless quoted", func(t *testing.T) {
		toks, err := lex("match `MATCH`")
		require.NoError(t, err)

		assert.True(t, toks[0].keyword("MATCH"))
		assert.False(t, toks[1].keyword("MATCH"))
	})

	t.Run("offsets", func(t *testing.T) {
		toks, err := lex("RETURN  a")
		require.NoError(t, err)

		assert.Equal(t, 0, toks[0].offset)
		assert.Equal(t, 8, toks[1].offset)
		assert.Equal(t, 9, toks[2].offset)
	})

	t.Run("doubled backquote", func(t *testing.T) {
		toks, err := lex("`a``b`")
		require.NoError(t, err)

		assert.Equal(t, "a`b", toks[0].text)
	})

	t.Run("comments are skipped", func(t *testing.T) {
		toks, err := lex("MATCH // all people\n(a:Person)")
		require.NoError(t, err)

		assert.Equal(t, "(", toks[1].text)
	})

	for name, text := range map[string]string{
		"unterminated string": "RETURN 'abc",
		"unterminated name":   "MATCH (`abc",
		"empty name":          "MATCH (``)",
		"stray character":     "MATCH (a) RETURN a#",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := lex(text)

			assert.Error(t, err)
		})
	}
}
