package model

// RenderFormat describes the target container/resolution the Render Adapter
// must produce. Adapted from the teacher's MediaFormatFilter (which described
// a transcode target width for an existing file) to the fixed vertical-video
// target this pipeline always renders to.
type RenderFormat struct {
	Container string // always "mp4"
	Width     int    // 1080
	Height    int    // 1920
	FPS       int    // 30
}

// DefaultRenderFormat is the only render target this pipeline currently
// produces (§4.9).
func DefaultRenderFormat() RenderFormat {
	return RenderFormat{Container: "mp4", Width: 1080, Height: 1920, FPS: 30}
}
