package app

import (
	"time"

	"stayhub/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used outside of tests.
func SystemClock() domain.Clock { return systemClock{} }
