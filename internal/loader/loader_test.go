package loader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Txt(t *testing.T) {
	text, err := Load([]byte("  hello world\n"), "notes.TXT")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestLoad_TxtLatin1Fallback(t *testing.T) {
	// 0xE9 is not valid UTF-8 on its own; Latin-1 maps it to 'é'.
	text, err := Load([]byte{'c', 'a', 'f', 0xE9}, "menu.txt")
	require.NoError(t, err)
	require.Equal(t, "café", text)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load([]byte("data"), "image.png")
	require.Error(t, err)
}

func TestLoad_MalformedPDF(t *testing.T) {
	_, err := Load([]byte("definitely not a pdf"), "broken.pdf")
	require.Error(t, err)
}
