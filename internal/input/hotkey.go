package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// KeyPoller reports whether the push-to-talk key is held right now.
// Edge detection is left to the caller.
type KeyPoller interface {
	Pressed() bool
}

// KeyState registers a global hotkey and tracks whether it is held
type KeyState struct {
	mu      sync.Mutex
	hk      *hotkey.Hotkey
	pressed bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewKeyState creates an unregistered key state
func NewKeyState() *KeyState {
	return &KeyState{done: make(chan struct{})}
}

// Start registers hotkeyStr (e.g. "ctrl+shift+f") and follows its
// key-down and key-up events until ctx is done or Stop is called
func (k *KeyState) Start(ctx context.Context, hotkeyStr string) error {
	mods, key, err := parseHotkey(hotkeyStr)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	k.hk = hotkey.New(mods, key)
	if err := k.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", hotkeyStr, err)
	}

	ctx, k.cancel = context.WithCancel(ctx)

	go func() {
		defer close(k.done)
		down, up := k.hk.Keydown(), k.hk.Keyup()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-down:
				if !ok {
					return
				}
				k.set(true)
			case _, ok := <-up:
				if !ok {
					return
				}
				k.set(false)
			}
		}
	}()

	return nil
}

func (k *KeyState) set(pressed bool) {
	k.mu.Lock()
	k.pressed = pressed
	k.mu.Unlock()
}

// Pressed reports whether the hotkey is currently held
func (k *KeyState) Pressed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pressed
}

// Stop unregisters the hotkey
func (k *KeyState) Stop() {
	if k.cancel != nil {
		k.cancel()
	}
	if k.hk != nil {
		_ = k.hk.Unregister()
	}
	if k.cancel != nil {
		select {
		case <-k.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// parseHotkey parses a hotkey string like "ctrl+shift+f" into modifiers and key
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	var (
		mods     []hotkey.Modifier
		key      hotkey.Key
		keyFound bool
	)

	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt", "option":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := keyNames[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %q", part)
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}

	return mods, key, nil
}

var keyNames = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
