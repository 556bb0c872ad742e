package theme

import "os"

// Icons used by the printers and the dashboard. LUMIN_ICONS=ascii selects
// plain fallbacks for terminals without Unicode symbols.
var (
	IconSuccess string
	IconError   string
	IconNotice  string
	IconLive    string
	IconDemo    string
	IconBullet  string
)

func init() {
	if os.Getenv("LUMIN_ICONS") == "ascii" {
		IconSuccess = "[ok]"
		IconError = "[x]"
		IconNotice = "[!]"
		IconLive = "*"
		IconDemo = "~"
		IconBullet = "-"
		return
	}
	IconSuccess = "✓"
	IconError = "✗"
	IconNotice = "⚑"
	IconLive = "●"
	IconDemo = "◐"
	IconBullet = "•"
}
