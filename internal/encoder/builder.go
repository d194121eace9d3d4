package encoder

import "strconv"

// Tool names as looked up on PATH.
const (
	Gif2WebP = "gif2webp"
	FFmpeg   = "ffmpeg"
)

// Default encoder settings for animated WebP.
const (
	Gif2WebPQuality   = 85
	Gif2WebPMethod    = 6
	FFmpegWebPQuality = 75
)

// Strategy is one way of producing an output file from an input file.
type Strategy struct {
	Name string
	Tool string
	Args func(in, out string) []string
}

// Gif2WebPStrategy converts with libwebp's gif2webp in lossy mode.
func Gif2WebPStrategy(quality, method int) Strategy {
	return Strategy{
		Name: "gif2webp",
		Tool: Gif2WebP,
		Args: func(in, out string) []string {
			return []string{
				"-q", strconv.Itoa(quality),
				"-m", strconv.Itoa(method),
				"-lossy",
				in,
				"-o", out,
			}
		},
	}
}

// FFmpegWebPStrategy converts with ffmpeg's libwebp encoder, looping
// forever.
func FFmpegWebPStrategy(quality int) Strategy {
	return Strategy{
		Name: "ffmpeg",
		Tool: FFmpeg,
		Args: func(in, out string) []string {
			return []string{
				"-hide_banner", "-nostdin", "-loglevel", "error",
				"-i", in,
				"-c:v", "libwebp",
				"-lossless", "0",
				"-quality", strconv.Itoa(quality),
				"-loop", "0",
				"-f", "webp",
				"-y", out,
			}
		},
	}
}

// AnimatedWebP returns the default GIF to animated WebP strategies:
// gif2webp first, ffmpeg as the fallback.
func AnimatedWebP() []Strategy {
	return []Strategy{
		Gif2WebPStrategy(Gif2WebPQuality, Gif2WebPMethod),
		FFmpegWebPStrategy(FFmpegWebPQuality),
	}
}
