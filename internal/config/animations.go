package config

// Animation describes one selectable sprite animation.
type Animation struct {
	Name   string
	Frames int
}

// DefaultAnimationIndex selects the classic bongo cat animation.
const DefaultAnimationIndex = 0

// animations is the ordered registry; indices are stable and stored in
// snapshots. Frame counts bound the idle_frame setting per animation.
var animations = []Animation{
	{Name: "bongocat", Frames: 4},
	{Name: "agumon", Frames: 3},
}

// animationAliases maps accepted animation_name values to registry indices.
var animationAliases = map[string]int{
	"bongocat":    0,
	"agumon":      1,
	"dm20:agumon": 1,
	"dm:agumon":   1,
}

// Animations returns the animation registry in index order.
func Animations() []Animation {
	out := make([]Animation, len(animations))
	copy(out, animations)
	return out
}

// AnimationByName resolves an animation_name value (including aliases) to a
// registry index.
func AnimationByName(name string) (int, bool) {
	idx, ok := animationAliases[name]
	return idx, ok
}

// AnimationAt returns the animation for a registry index. Out-of-range
// indices fall back to the default animation.
func AnimationAt(index int) Animation {
	if index < 0 || index >= len(animations) {
		return animations[DefaultAnimationIndex]
	}
	return animations[index]
}
