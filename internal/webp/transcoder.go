// Package webp provides the conversion collaborator used when a scan
// requests its non-WebP images bundled as WebP. The real encoder is an
// external dependency outside this module's scope; PassthroughTranscoder
// satisfies interfaces.WebPTranscoder without one so the zip pipeline can
// be wired and tested end to end ahead of that integration.
package webp

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// PassthroughTranscoder returns the source bytes unchanged, tagged as if
// converted. It exists so callers depending on interfaces.WebPTranscoder
// can be built and exercised before a real encoder is wired in.
type PassthroughTranscoder struct {
	logger arbor.ILogger
}

var _ interfaces.WebPTranscoder = (*PassthroughTranscoder)(nil)

// New builds a PassthroughTranscoder.
func New(logger arbor.ILogger) *PassthroughTranscoder {
	return &PassthroughTranscoder{logger: logger}
}

func (t *PassthroughTranscoder) Transcode(ctx context.Context, src []byte, mimeType string) ([]byte, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("transcode: empty source image")
	}
	t.logger.Debug().Str("mime_type", mimeType).Int("src_bytes", len(src)).Msg("passthrough transcode, no real WebP encoder wired")
	return src, nil
}
