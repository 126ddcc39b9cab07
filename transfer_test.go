package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

func TestParseID(t *testing.T) {
	id, err := parseID("file id", "113000000012")
	require.NoError(t, err)
	assert.Equal(t, int64(113000000012), id)

	for _, bad := range []string{"", "abc", "0", "-5", "1.5"} {
		t.Run(bad, func(t *testing.T) {
			_, err := parseID("file id", bad)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid file id")
		})
	}
}

func chunksOf(parts []string, failAt int) func(func([]byte, error) bool) {
	return func(yield func([]byte, error) bool) {
		for i, p := range parts {
			if i == failAt {
				yield(nil, errors.New("chunk fetch failed"))
				return
			}

			if !yield([]byte(p), nil) {
				return
			}
		}
	}
}

func TestCopyChunks(t *testing.T) {
	var buf bytes.Buffer

	n, err := copyChunks(&buf, chunksOf([]string{"a,b\n", "1,2\n", "3,4\n"}, -1))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "a,b\n1,2\n3,4\n", buf.String())
}

func TestCopyChunks_StopsOnError(t *testing.T) {
	var buf bytes.Buffer

	n, err := copyChunks(&buf, chunksOf([]string{"first", "second"}, 1))
	require.Error(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "first", buf.String())
}

func TestCopyChunks_WriteError(t *testing.T) {
	_, err := copyChunks(failingWriter{}, chunksOf([]string{"x"}, -1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing output")
}

func TestCountingReader(t *testing.T) {
	counted := &countingReader{r: strings.NewReader("abcdefgh")}

	var got []string
	for chunk, err := range anaplan.ReaderChunks(counted, 3) {
		require.NoError(t, err)
		got = append(got, string(chunk))
	}

	assert.Equal(t, []string{"abc", "def", "gh"}, got)
	assert.Equal(t, int64(8), counted.n)
}
