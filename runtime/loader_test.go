package runtime

import (
	"chatrooms/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"words/en.txt":       {Data: []byte("Idiot\r\nmoron\n\n# comment\n")},
		"words/tl.txt":       {Data: []byte("gago\nidiot\n")},
		"words/README.md":    {Data: []byte("not a dictionary")},
		"words/nested/x.txt": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(files).LoadAll("words")
	req.NoError(err)
	req.Equal([]string{"gago", "idiot", "moron"}, data.Words)
	req.ElementsMatch([]string{"en", "tl"}, data.Languages)
}

func TestCensoredLoader_Empty(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{"words/en.txt": {Data: []byte("\n\n")}}

	_, err := NewCensoredLoader(files).LoadAll("words")
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestDefaultCensoredLoader_ShipsDictionaries(t *testing.T) {
	req := require.New(t)
	data, err := DefaultCensoredLoader().LoadAll("censored")
	req.NoError(err)
	req.Contains(data.Words, "gago")
	req.Contains(data.Languages, "en")
}
