package evidence

import "errors"

// ErrNoAmount is returned when no plausible monetary amount can be read off
// the proof image.
var ErrNoAmount = errors.New("no amount detected")
