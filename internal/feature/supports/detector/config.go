package detector

const (
	DefaultMinTouches         = 3
	DefaultMinDistancePercent = 0.5
	DefaultWindow             = 20
	DefaultTouchTolerance     = 0.001
)

// Config tunes the detector. Zero fields take the defaults above.
type Config struct {
	// MinTouches is the number of in-band lows a level needs to be reported.
	MinTouches int
	// MinDistancePercent scales the spread of candidate prices into the
	// minimum gap between two reported levels.
	MinDistancePercent float64
	// Window is the number of candles on each side a local minimum must hold against.
	Window int
	// TouchTolerance is the relative half-width of the touch band (0.001 = ±0.1%).
	TouchTolerance float64
}

func (c Config) withDefaults() Config {
	if c.MinTouches <= 0 {
		c.MinTouches = DefaultMinTouches
	}
	if c.MinDistancePercent <= 0 {
		c.MinDistancePercent = DefaultMinDistancePercent
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.TouchTolerance <= 0 {
		c.TouchTolerance = DefaultTouchTolerance
	}
	return c
}
