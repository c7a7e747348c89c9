package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFSinkRender(t *testing.T) {
	sink := NewPDFSink()

	rows := []Row{
		{Code: "A", Name: "Apple", Quantity: 5, Revenue: 50},
		{Code: "B", Name: "Banana", Quantity: 1, Revenue: 5},
	}

	var buf bytes.Buffer
	require.NoError(t, sink.Render("Daily Sales Report", rows, 55, &buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestPDFSinkRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFSink().Render("Weekly Sales Report", nil, 0, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
