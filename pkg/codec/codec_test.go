package codec_test

import (
	"math"
	"strings"
	"testing"

	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Scalars(t *testing.T) {
	v, err := codec.Parse("name: test\ncount: 3\nratio: 0.5\nactive: true\nnothing: ~\nquoted: \"42\"\n")
	require.NoError(t, err)

	want := domain.Mapping(
		domain.E("name", domain.String("test")),
		domain.E("count", domain.Int(3)),
		domain.E("ratio", domain.Float(0.5)),
		domain.E("active", domain.Bool(true)),
		domain.E("nothing", domain.Null()),
		domain.E("quoted", domain.String("42")),
	)
	assert.True(t, want.Equal(v), "got %s", v)
}

func TestParse_PreservesKeyOrder(t *testing.T) {
	v, err := codec.Parse("zebra: 1\napple: 2\nmango: 3\n")
	require.NoError(t, err)

	var keys []string
	for _, e := range v.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, keys)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unterminated flow": "key: [unterminated",
		"tab indentation":   "root:\n\tchild: 1\n",
		"duplicate key":     "a: 1\nb: 2\na: 3\n",
		"multiple docs":     "a: 1\n---\nb: 2\n",
		"complex key":       "? [a, b]\n: value\n",
		"bad indentation":   "a:\n  b: 1\n c: 2\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Parse(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrParse)

			var perr *domain.ParseError
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Message)
		})
	}
}

func TestParse_DuplicateKeyReportsLine(t *testing.T) {
	_, err := codec.Parse("a: 1\nb: 2\na: 3\n")
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, perr.Message, `"a"`)
}

func TestParse_EmptyIsNull(t *testing.T) {
	for _, text := range []string{"", "   \n", "# just a comment\n"} {
		v, err := codec.Parse(text)
		require.NoError(t, err, "%q", text)
		assert.True(t, v.IsNull(), "%q", text)
	}
}

func TestParse_AliasesAndMerge(t *testing.T) {
	text := `base: &base
  host: localhost
  port: 80
dev:
  <<: *base
  port: 8080
copy: *base
`
	v, err := codec.Parse(text)
	require.NoError(t, err)

	dev, ok := v.Get("dev")
	require.True(t, ok)
	want := domain.Mapping(
		domain.E("port", domain.Int(8080)),
		domain.E("host", domain.String("localhost")),
	)
	assert.True(t, want.Equal(dev), "got %s", dev)

	base, _ := v.Get("base")
	cp, _ := v.Get("copy")
	assert.True(t, base.Equal(cp))
}

func TestParse_KeysKeepTheirText(t *testing.T) {
	v, err := codec.Parse("1: one\nnull: nothing\ntrue: yes\n")
	require.NoError(t, err)

	_, ok := v.Get("1")
	assert.True(t, ok)
	_, ok = v.Get("null")
	assert.True(t, ok)
	yes, ok := v.Get("true")
	require.True(t, ok)
	// YAML 1.2 core schema: "yes" is a string.
	assert.True(t, domain.String("yes").Equal(yes))
}

func TestSerialize_Policy(t *testing.T) {
	v := domain.Mapping(
		domain.E("name", domain.String("café ☕")),
		domain.E("version", domain.String("1.0")),
		domain.E("flag", domain.String("true")),
		domain.E("empty", domain.String("")),
		domain.E("count", domain.Int(5)),
		domain.E("ratio", domain.Float(2)),
		domain.E("items", domain.Sequence(domain.String("a"), domain.String("b"))),
		domain.E("nested", domain.Mapping(domain.E("z", domain.Null()), domain.E("a", domain.Bool(false)))),
	)

	text, err := codec.Serialize(v)
	require.NoError(t, err)

	assert.Contains(t, text, "name: café ☕\n", "unicode is emitted literally")
	assert.Contains(t, text, `version: "1.0"`)
	assert.Contains(t, text, `flag: "true"`)
	assert.Contains(t, text, `empty: ""`)
	assert.Contains(t, text, "count: 5\n")
	assert.Contains(t, text, "ratio: 2.0\n")
	assert.Contains(t, text, "nested:\n  z: null\n  a: false\n")
	assert.NotContains(t, text, "{", "block style only")

	// Insertion order, not sorted.
	assert.Less(t, strings.Index(text, "name:"), strings.Index(text, "count:"))
	assert.Less(t, strings.Index(text, "z: null"), strings.Index(text, "a: false"))
}

func TestSerialize_RejectsInvalidUTF8(t *testing.T) {
	_, err := codec.Serialize(domain.Mapping(domain.E("bad", domain.String("\xff\xfe"))))
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

// Serialize then Parse must give back an equal value, for values that stress quoting.
func TestRoundTrip_Values(t *testing.T) {
	values := []domain.Value{
		domain.Mapping(),
		domain.Sequence(),
		domain.Null(),
		domain.String("plain"),
		domain.Mapping(
			domain.E("numberish", domain.String("0x1F")),
			domain.E("dateish", domain.String("2001-12-14")),
			domain.E("nullish", domain.String("~")),
			domain.E("colon", domain.String("a: b")),
			domain.E("hash", domain.String("x #y")),
			domain.E("lead", domain.String("- item")),
			domain.E("multi", domain.String("line one\nline two\n")),
			domain.E("spaces", domain.String("  padded  ")),
			domain.E("floats", domain.Sequence(domain.Float(1e21), domain.Float(-0.25), domain.Float(math.Inf(-1)), domain.Float(math.NaN()))),
			domain.E("ints", domain.Sequence(domain.Int(math.MaxInt64), domain.Int(math.MinInt64), domain.Int(0))),
			domain.E("", domain.String("empty key")),
			domain.E("<<", domain.String("not a merge")),
			domain.E("1", domain.String("numeric key")),
			domain.E("deep", domain.Sequence(
				domain.Mapping(domain.E("a", domain.Sequence(domain.Sequence(domain.Int(1))))),
				domain.Mapping(),
				domain.Sequence(),
			)),
		),
	}

	for _, v := range values {
		text, err := codec.Serialize(v)
		require.NoError(t, err, v.String())

		back, err := codec.Parse(text)
		require.NoError(t, err, "reparse of:\n%s", text)
		assert.True(t, v.Equal(back), "value %s came back as %s via:\n%s", v, back, text)
	}
}

// Parse then Serialize then Parse must be stable for real documents.
func TestRoundTrip_Documents(t *testing.T) {
	docs := []string{
		"name: test\ncount: 3\nactive: true\n",
		"- a\n- b: 1\n  c: [1, 2, {d: e}]\n- ~\n",
		"server:\n  host: \"0.0.0.0\"\n  ports: [80, 443]\n  tls: {enabled: yes}\nnote: |\n  first\n  second\n",
		"plain scalar at root\n",
		"anchors:\n  a: &x {k: v}\n  b: *x\n",
		"when: 2024-01-01\nbin: !!binary aGVsbG8=\ncustom: !thing value\n",
		"中文: 你好\nemoji: \"\\U0001F600\"\n",
	}
	for _, doc := range docs {
		first, err := codec.Parse(doc)
		require.NoError(t, err, doc)

		text, err := codec.Serialize(first)
		require.NoError(t, err, doc)

		second, err := codec.Parse(text)
		require.NoError(t, err, text)
		assert.True(t, first.Equal(second), "doc:\n%s\nserialized:\n%s", doc, text)
	}
}
