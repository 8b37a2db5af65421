package render

import "net/http"

const (
	// ThemeCookie holds the visitor's explicit colour scheme.
	ThemeCookie  = "payload-theme"
	ThemeAuto    = "auto"
	ThemeLight   = "light"
	ThemeDark    = "dark"
	DefaultTheme = ThemeLight
)

// ValidTheme reports whether t can be rendered as data-theme.
func ValidTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}

// ThemeFromRequest is the stored theme, or "" when the visitor follows the
// system preference.
func ThemeFromRequest(r *http.Request) string {
	c, err := r.Cookie(ThemeCookie)
	if err != nil || !ValidTheme(c.Value) {
		return ""
	}
	return c.Value
}
