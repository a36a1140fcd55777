package qrcode

import (
	"encoding/base64"
	"fmt"
)

// WrapPNG returns an SVG document embedding png as a data URI.
func WrapPNG(png []byte, width, height int) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">
<image width="%d" height="%d" xlink:href="data:image/png;base64,%s"/>
</svg>
`, width, height, width, height, width, height, base64.StdEncoding.EncodeToString(png))
}
