//go:build linux

package input

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4
func modAlt() hotkey.Modifier {
	return hotkey.Mod1
}

func modSuper() hotkey.Modifier {
	return hotkey.Mod4
}
