package nota

import "time"

func SetNowFunc(fn func() time.Time) { nowFunc = fn }
