package sound

type Mode string

const (
	ModeAlways         Mode = "always"
	ModeBackgroundOnly Mode = "background-only"
	ModeOff            Mode = "off"
)

func NormalizeMode(raw string) Mode {
	switch Mode(raw) {
	case ModeAlways, ModeBackgroundOnly, ModeOff:
		return Mode(raw)
	default:
		return ModeAlways
	}
}

// ShouldPlay decides whether the chime fires for this completion.
// Background-only covers the case where the user is looking at the
// countdown anyway and does not need an audible cue.
func ShouldPlay(mode Mode, userInitiated bool) bool {
	switch mode {
	case ModeOff:
		return false
	case ModeBackgroundOnly:
		return !userInitiated
	default:
		return true
	}
}
