package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirm asks a yes/no question and reports whether the answer starts with "y".
// An empty answer or end of input counts as no.
func Confirm(ctx context.Context, r *NonBlockingReader, w io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprint(w, FormatPrompt(question+" [y/N]")); err != nil {
		return false, err
	}

	answer, err := r.ReadLine(ctx)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}

	return strings.HasPrefix(strings.ToLower(answer), "y"), nil
}
