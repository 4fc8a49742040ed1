package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semantic-plagiarism/internal/model"
)

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract("essay.TXT", strings.NewReader("\xef\xbb\xbfHello world."))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", text)

	text, err = Extract("notes.md", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_Rejects(t *testing.T) {
	_, err := Extract("binary.txt", strings.NewReader("\xff\xfe\x00"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = Extract("slides.pptx", strings.NewReader("x"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = Extract("broken.pdf", strings.NewReader("not a pdf at all"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestExtract_EmptyPDF(t *testing.T) {
	text, err := Extract("empty.pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("b.Md"))
	assert.False(t, Supported("c.docx"))
	assert.False(t, Supported("noext"))
}
