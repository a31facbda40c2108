// Package colorizer maps free-text session type labels to a stable palette
// color without any stored lookup table.
package colorizer

import (
	"strings"
	"unicode/utf16"
)

type PaletteColor struct {
	Name string `json:"name" example:"teal"`
	Hex  string `json:"hex" example:"#14b8a6"`
}

// Neutral is reserved for sessions without a type label and is never
// produced by the hash.
var Neutral = PaletteColor{Name: "slate", Hex: "#64748b"}

var palette = []PaletteColor{
	{Name: "red", Hex: "#ef4444"},
	{Name: "orange", Hex: "#f97316"},
	{Name: "amber", Hex: "#f59e0b"},
	{Name: "yellow", Hex: "#eab308"},
	{Name: "lime", Hex: "#84cc16"},
	{Name: "green", Hex: "#22c55e"},
	{Name: "emerald", Hex: "#10b981"},
	{Name: "teal", Hex: "#14b8a6"},
	{Name: "cyan", Hex: "#06b6d4"},
	{Name: "sky", Hex: "#0ea5e9"},
	{Name: "blue", Hex: "#3b82f6"},
	{Name: "indigo", Hex: "#6366f1"},
	{Name: "violet", Hex: "#8b5cf6"},
	{Name: "purple", Hex: "#a855f7"},
	{Name: "fuchsia", Hex: "#d946ef"},
	{Name: "pink", Hex: "#ec4899"},
	{Name: "rose", Hex: "#f43f5e"},
	{Name: "brown", Hex: "#92400e"},
	{Name: "olive", Hex: "#4d7c0f"},
	{Name: "navy", Hex: "#1e3a8a"},
	{Name: "maroon", Hex: "#9f1239"},
	{Name: "coral", Hex: "#fb7185"},
	{Name: "mint", Hex: "#6ee7b7"},
	{Name: "gold", Hex: "#ca8a04"},
}

// Palette returns a copy of the ordered palette.
func Palette() []PaletteColor {
	out := make([]PaletteColor, len(palette))
	copy(out, palette)
	return out
}

// Normalize trims and lowercases a label so "HIIT" and "hiit " collide.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Hash is the 31-multiplier rolling hash over UTF-16 code units with signed
// 32-bit wraparound.
func Hash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}

func ColorFor(label string) PaletteColor {
	normalized := Normalize(label)
	if normalized == "" {
		return Neutral
	}

	h := int64(Hash(normalized))
	if h < 0 {
		h = -h
	}
	return palette[h%int64(len(palette))]
}
