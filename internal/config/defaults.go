package config

const (
	defaultScreenWidth      = 1920
	defaultCatXOffset       = 100
	defaultCatYOffset       = 10
	defaultCatHeight        = 40
	defaultOverlayHeight    = 50
	defaultIdleFrame        = 0
	defaultKeypressDuration = 100
	defaultTestAnimDuration = 200
	defaultTestAnimInterval = 3
	defaultFPS              = 60
	defaultOverlayOpacity   = 150
	defaultKeyboardDevice   = "/dev/input/event4"
	defaultEnableDebug      = true
	defaultOverlayPosition  = PositionTop
	defaultLayer            = LayerTop
)

// Validation bounds. test_animation_interval of 0 disables the periodic test
// animation, so its minimum is 0 rather than 1.
const (
	minCatHeight     = 10
	maxCatHeight     = 200
	minOverlayHeight = 20
	maxOverlayHeight = 300
	minFPS           = 1
	maxFPS           = 120
	minDuration      = 10
	maxDuration      = 5000
	maxInterval      = 3600
	maxOpacity       = 255
	maxPadding       = 200
)

// Default returns a Snapshot populated with repository defaults. Screen
// geometry starts at the fallback width; the compositor layer reports the
// real value once a surface exists.
func Default() Snapshot {
	return Snapshot{
		ScreenWidth:           defaultScreenWidth,
		BarHeight:             defaultOverlayHeight,
		CatXOffset:            defaultCatXOffset,
		CatYOffset:            defaultCatYOffset,
		CatHeight:             defaultCatHeight,
		OverlayHeight:         defaultOverlayHeight,
		IdleFrame:             defaultIdleFrame,
		KeypressDuration:      defaultKeypressDuration,
		TestAnimationDuration: defaultTestAnimDuration,
		TestAnimationInterval: defaultTestAnimInterval,
		FPS:                   defaultFPS,
		OverlayOpacity:        defaultOverlayOpacity,
		EnableDebug:           defaultEnableDebug,
		OverlayPosition:       defaultOverlayPosition,
		Layer:                 defaultLayer,
		AnimationIndex:        DefaultAnimationIndex,
	}
}
