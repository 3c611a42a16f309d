package tui

import "time"

const (
	toastBufferSize = 32
	// toastsShown is how many of the latest notifications stay on screen.
	toastsShown   = 3
	toastLifetime = 6 * time.Second
	tickInterval  = time.Second

	defaultWidth     = 80
	rightViewportMax = 90

	// listOverheadLines covers header, status line, progress bar and spacer above the list.
	listOverheadLines = 8
	listMinHeight     = 3
	defaultHeight     = 24

	// cleaningTimeout bounds a cleanup request started from the UI.
	cleaningTimeout = 5 * time.Minute
)
