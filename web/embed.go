// Package web embeds the chat-widget shell served on the public embed
// surface. The admin frontend is deployed separately; only the widget
// ships inside the binary.
package web

import (
	"embed"
	"html/template"
)

//go:embed widget.html
var widgetFS embed.FS

// WidgetTemplate is the parsed widget shell. The embed handler executes
// it with the resolved agent metadata and theme configuration.
var WidgetTemplate = template.Must(template.ParseFS(widgetFS, "widget.html"))
