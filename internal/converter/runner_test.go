package converter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parsekit/parsekit-converter/pkg/execx"
)

// fakeRunner records commands and delegates to a configurable handler.
type fakeRunner struct {
	mu    sync.Mutex
	calls []execx.Command
	run   func(ctx context.Context, cmd execx.Command) (*execx.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd execx.Command) (*execx.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	return f.run(ctx, cmd)
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResult() *execx.Result {
	return &execx.Result{ExitCode: 0}
}

// argAfter returns the argument following flag, or "".
func argAfter(cmd execx.Command, flag string) string {
	for i, a := range cmd.Args {
		if a == flag && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	return ""
}

// tinyPNG returns a 2x2 PNG for use as fake pdftoppm output.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
