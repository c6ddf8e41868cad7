package fixtures

import (
	"bytes"
	"context"
	_ "embed"
)

//go:embed demo.yaml
var demo []byte

// LoadDemo loads the bundled demo content.
func (l *Loader) LoadDemo(ctx context.Context) (Result, error) {
	return l.Load(ctx, bytes.NewReader(demo))
}
