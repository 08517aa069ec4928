// Package embedtheme normalizes the customization inputs the embeddable
// chat widget accepts via its query string.
package embedtheme

import (
	"strings"
)

// Theme is the normalized widget customization. Color fields are
// pointers: nil means the input was absent and the widget falls back to
// its built-in styling — no color is fabricated here.
type Theme struct {
	Title           string  `json:"title,omitempty"`
	Subtitle        string  `json:"subtitle,omitempty"`
	WelcomeMessage  string  `json:"welcome_message,omitempty"`
	Placeholder     string  `json:"placeholder,omitempty"`
	LogoURL         string  `json:"logo_url,omitempty"`
	AvatarURL       string  `json:"avatar_url,omitempty"`
	ClientName      string  `json:"client_name,omitempty"`
	ClientEmail     string  `json:"client_email,omitempty"`
	PrimaryColor    *string `json:"primary_color,omitempty"`
	SecondaryColor  *string `json:"secondary_color,omitempty"`
	BackgroundColor *string `json:"background_color,omitempty"`
	TextColor       *string `json:"text_color,omitempty"`
	AccentColor     *string `json:"accent_color,omitempty"`
}

// Resolve produces a normalized theme from raw customization inputs.
// Each field accepts a camelCase key with a kebab-case fallback; color
// values missing the leading # have it prepended.
func Resolve(params map[string]string) Theme {
	return Theme{
		Title:           lookup(params, "title", "title"),
		Subtitle:        lookup(params, "subtitle", "subtitle"),
		WelcomeMessage:  lookup(params, "welcomeMessage", "welcome-message"),
		Placeholder:     lookup(params, "placeholder", "placeholder"),
		LogoURL:         lookup(params, "logoUrl", "logo-url"),
		AvatarURL:       lookup(params, "avatarUrl", "avatar-url"),
		ClientName:      lookup(params, "clientName", "client-name"),
		ClientEmail:     lookup(params, "clientEmail", "client-email"),
		PrimaryColor:    color(params, "primaryColor", "primary-color"),
		SecondaryColor:  color(params, "secondaryColor", "secondary-color"),
		BackgroundColor: color(params, "backgroundColor", "background-color"),
		TextColor:       color(params, "textColor", "text-color"),
		AccentColor:     color(params, "accentColor", "accent-color"),
	}
}

// lookup returns the camelCase value, falling back to the kebab-case
// key when the camelCase one is absent.
func lookup(params map[string]string, camel, kebab string) string {
	if v, ok := params[camel]; ok && v != "" {
		return v
	}
	return params[kebab]
}

// color resolves a color input and ensures the leading # marker.
// Prepending is idempotent: values that already carry it are unchanged.
func color(params map[string]string, camel, kebab string) *string {
	v := lookup(params, camel, kebab)
	if v == "" {
		return nil
	}
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	return &v
}
