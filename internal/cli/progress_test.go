package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	var buf syncBuffer
	p := NewProgress(&buf, 50, "Importing")
	require.NotNil(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Tick()
		}()
	}
	wg.Wait()
	p.Finish()

	assert.Equal(t, int64(50), p.Current())
	assert.Contains(t, buf.String(), "Importing")
}

func TestProgress_Nil(t *testing.T) {
	assert.Nil(t, NewProgress(&bytes.Buffer{}, 0, "Importing"))
	assert.Nil(t, NewProgress(nil, 10, "Importing"))

	var p *Progress
	assert.NotPanics(t, func() {
		p.Tick()
		p.Finish()
	})
	assert.Zero(t, p.Current())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "yes\n", want: true},
		{name: "y uppercase", input: "Y\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty answer", input: "\n", want: false},
		{name: "end of input", input: "", want: false},
		{name: "answer without newline", input: "y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(context.Background(), NewNonBlockingReader(strings.NewReader(tt.input)), &out, "Reset the catalog?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Reset the catalog? [y/N]")
		})
	}

	t.Run("cancelled", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pw.Close() }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Confirm(ctx, NewNonBlockingReader(pr), io.Discard, "Continue?")
		assert.ErrorIs(t, err, ErrInputCancelled)
	})
}
