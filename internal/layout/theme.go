package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hanko-field/bizdoc/internal/domain"
)

//go:embed themes.yaml
var embeddedThemes []byte

// Color is an sRGB triple in 0..255.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// UnmarshalYAML accepts "#rrggbb".
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseHexColor(node.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func parseHexColor(raw string) (Color, error) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(value) != 6 {
		return Color{}, fmt.Errorf("layout: invalid color %q", raw)
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("layout: invalid color %q: %w", raw, err)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

// Palette groups the theme colors.
type Palette struct {
	Primary         Color `yaml:"primary" json:"primary"`
	Accent          Color `yaml:"accent" json:"accent"`
	Text            Color `yaml:"text" json:"text"`
	Muted           Color `yaml:"muted" json:"muted"`
	Rule            Color `yaml:"rule" json:"rule"`
	TableHeaderFill Color `yaml:"tableHeaderFill" json:"tableHeaderFill"`
	TableHeaderText Color `yaml:"tableHeaderText" json:"tableHeaderText"`
	ZebraFill       Color `yaml:"zebraFill" json:"zebraFill"`
	BandFill        Color `yaml:"bandFill" json:"bandFill"`
	BandText        Color `yaml:"bandText" json:"bandText"`
}

// Tokens are the styling values a theme contributes. Sizes are in points.
type Tokens struct {
	Theme       domain.ThemeID `yaml:"-" json:"theme"`
	Font        string         `yaml:"font" json:"font"`
	HeadingFont string         `yaml:"headingFont" json:"headingFont"`
	TitleSize   float64        `yaml:"titleSize" json:"titleSize"`
	HeadingSize float64        `yaml:"headingSize" json:"headingSize"`
	BodySize    float64        `yaml:"bodySize" json:"bodySize"`
	SmallSize   float64        `yaml:"smallSize" json:"smallSize"`
	LineHeight  float64        `yaml:"lineHeight" json:"lineHeight"`
	RegionGap   float64        `yaml:"regionGap" json:"regionGap"`
	CellPadding float64        `yaml:"cellPadding" json:"cellPadding"`
	HeaderBand  bool           `yaml:"headerBand" json:"headerBand"`
	ZebraRows   bool           `yaml:"zebraRows" json:"zebraRows"`
	Colors      Palette        `yaml:"colors" json:"colors"`
}

// ThemeTable maps theme identifiers to their tokens.
type ThemeTable struct {
	themes map[domain.ThemeID]Tokens
}

var (
	themesOnce    sync.Once
	defaultThemes *ThemeTable
)

// DefaultThemes returns the table compiled into the binary.
func DefaultThemes() *ThemeTable {
	themesOnce.Do(func() {
		table, err := LoadThemes(embeddedThemes)
		if err != nil {
			panic(fmt.Sprintf("layout: embedded theme table is invalid: %v", err))
		}
		defaultThemes = table
	})
	return defaultThemes
}

// LoadThemes parses a theme table. Every supported ThemeID must be present.
func LoadThemes(data []byte) (*ThemeTable, error) {
	var file struct {
		Themes map[string]Tokens `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("layout: parse themes: %w", err)
	}
	table := &ThemeTable{themes: make(map[domain.ThemeID]Tokens, len(file.Themes))}
	for name, tokens := range file.Themes {
		id := domain.ThemeID(strings.ToLower(strings.TrimSpace(name)))
		if !id.Valid() {
			return nil, fmt.Errorf("layout: unknown theme %q", name)
		}
		if tokens.Font == "" || tokens.BodySize <= 0 || tokens.TitleSize <= 0 {
			return nil, fmt.Errorf("layout: theme %q is missing font settings", name)
		}
		if tokens.HeadingFont == "" {
			tokens.HeadingFont = tokens.Font
		}
		if tokens.SmallSize <= 0 {
			tokens.SmallSize = tokens.BodySize
		}
		if tokens.HeadingSize <= 0 {
			tokens.HeadingSize = tokens.BodySize
		}
		if tokens.LineHeight <= 0 {
			tokens.LineHeight = 1.3
		}
		tokens.Theme = id
		table.themes[id] = tokens
	}
	for _, id := range domain.ThemeIDs {
		if _, ok := table.themes[id]; !ok {
			return nil, errors.New("layout: theme table is missing " + string(id))
		}
	}
	return table, nil
}

// Tokens returns the tokens for a theme, falling back to modern for unknown ids.
func (t *ThemeTable) Tokens(id domain.ThemeID) Tokens {
	if tokens, ok := t.themes[id]; ok {
		return tokens
	}
	return t.themes[domain.ThemeModern]
}
