package domain

// LogoImage is a decoded-and-verified logo ready to embed.
type LogoImage struct {
	Ref    string `json:"ref"`
	Format string `json:"format"` // png, jpeg, gif
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

// AspectRatio returns width/height, or 1 when dimensions are unknown.
func (l *LogoImage) AspectRatio() float64 {
	if l == nil || l.Width <= 0 || l.Height <= 0 {
		return 1
	}
	return float64(l.Width) / float64(l.Height)
}
