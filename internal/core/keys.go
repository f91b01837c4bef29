package core

import (
	"fmt"
	"strings"

	"github.com/chess10kp/poplaunch/internal/config"
	"github.com/chess10kp/poplaunch/internal/launcher"
	"github.com/gotk3/gotk3/gdk"
)

// modifierMask is the set of modifiers that take part in bindings. Lock
// and NumLock state is ignored.
const modifierMask = gdk.CONTROL_MASK | gdk.SHIFT_MASK | gdk.MOD1_MASK | gdk.SUPER_MASK

type binding struct {
	keyval uint
	mods   gdk.ModifierType
}

// keymap maps key presses in the input box to controller events.
type keymap map[binding]launcher.UIEventKind

// splitBinding parses "Ctrl+Shift+P" into a key name and its modifiers.
func splitBinding(combo string) (string, gdk.ModifierType, error) {
	parts := strings.Split(combo, "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return "", 0, fmt.Errorf("binding %q has no key", combo)
	}

	var mods gdk.ModifierType
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control":
			mods |= gdk.CONTROL_MASK
		case "shift":
			mods |= gdk.SHIFT_MASK
		case "alt", "mod1":
			mods |= gdk.MOD1_MASK
		case "super", "logo":
			mods |= gdk.SUPER_MASK
		default:
			return "", 0, fmt.Errorf("binding %q has unknown modifier %q", combo, p)
		}
	}

	// single letters are matched case-insensitively
	if len(key) == 1 {
		key = strings.ToLower(key)
	}
	return key, mods, nil
}

func newKeymap(keys config.KeysConfig) (keymap, error) {
	km := keymap{}
	groups := []struct {
		kind   launcher.UIEventKind
		combos []string
	}{
		{launcher.MoveUp, keys.Up},
		{launcher.MoveDown, keys.Down},
		{launcher.Execute, keys.Activate},
		{launcher.Escape, keys.Close},
		{launcher.Complete, keys.Complete},
	}

	for _, g := range groups {
		for _, combo := range g.combos {
			name, mods, err := splitBinding(combo)
			if err != nil {
				return nil, err
			}
			keyval := gdk.KeyvalFromName(name)
			if keyval == 0 || keyval == gdk.KEY_VoidSymbol {
				return nil, fmt.Errorf("binding %q names an unknown key", combo)
			}
			km[binding{keyval: keyval, mods: mods}] = g.kind
		}
	}
	return km, nil
}

func (km keymap) lookup(keyval uint, state uint) (launcher.UIEventKind, bool) {
	b := binding{
		keyval: gdk.KeyvalToLower(keyval),
		mods:   gdk.ModifierType(state) & modifierMask,
	}
	kind, ok := km[b]
	return kind, ok
}
