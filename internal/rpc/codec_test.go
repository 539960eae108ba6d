package rpc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", `"hello"`},
		{"string with embedded quote", `she said "hi"`, `"she said \"hi\""`},
		{"string with backslash", `a\b`, `"a\\b"`},
		{"symbol", Symbol("submit_prompt"), "submit_prompt"},
		{"true", true, "t"},
		{"false", false, "nil"},
		{"nil", nil, "nil"},
		{"int", 42, "42"},
		{"empty list", List{}, "()"},
		{"nested list", List{Symbol("call"), "id-1", Symbol("cancel"), "/tmp/proj"}, `(call "id-1" cancel "/tmp/proj")`},
		{"list of lists", List{List{"user", "hi"}, List{"assistant", "hello"}}, `(("user" "hi") ("assistant" "hello"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.in))
		})
	}
}

func TestDecoder_RoundTrip(t *testing.T) {
	form := List{Symbol("call"), "id-1", Symbol("submit_prompt"), "/tmp/proj", "hello there"}
	encoded := Encode(form)

	dec := NewDecoder(strings.NewReader(encoded))
	got, err := dec.Next()
	require.NoError(t, err)

	list, ok := AsList(got)
	require.True(t, ok)
	require.Len(t, list, 5)

	tag, ok := AsSymbol(list[0])
	require.True(t, ok)
	assert.Equal(t, Symbol("call"), tag)

	id, ok := AsString(list[1])
	require.True(t, ok)
	assert.Equal(t, "id-1", id)

	op, ok := AsSymbol(list[2])
	require.True(t, ok)
	assert.Equal(t, Symbol("submit_prompt"), op)
}

func TestDecoder_EmbeddedNewlineInString(t *testing.T) {
	dec := NewDecoder(strings.NewReader("(event \"message\" \"line one\nline two\")"))
	got, err := dec.Next()
	require.NoError(t, err)

	list, ok := AsList(got)
	require.True(t, ok)
	content, ok := AsString(list[2])
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", content)
}

func TestDecoder_SequentialForms(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`(event "a") (event "b")`))

	first, err := dec.Next()
	require.NoError(t, err)
	firstList, _ := AsList(first)
	s1, _ := AsString(firstList[1])
	assert.Equal(t, "a", s1)

	second, err := dec.Next()
	require.NoError(t, err)
	secondList, _ := AsList(second)
	s2, _ := AsString(secondList[1])
	assert.Equal(t, "b", s2)
}

func TestDecoder_NumbersAndBooleans(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`(42 3.5 t nil)`))
	got, err := dec.Next()
	require.NoError(t, err)
	list, _ := AsList(got)
	require.Len(t, list, 4)
	assert.Equal(t, int64(42), list[0])
	assert.Equal(t, 3.5, list[1])
	assert.Equal(t, true, list[2])
	assert.Equal(t, false, list[3])
}

func TestDecoder_UnterminatedList(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`(call "id" foo`))
	_, err := dec.Next()
	assert.Error(t, err)
}
