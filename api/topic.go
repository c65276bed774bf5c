package api

type Topic string

const (
	ImagesUpdated        Topic = "event-images-updated"
	ImageRotated         Topic = "event-image-rotated"
	ProcessStatusUpdated Topic = "event-process-status-updated"
	LoadFinished         Topic = "event-load-finished"
	CommitFinished       Topic = "event-commit-finished"
	ShowError            Topic = "event-show-error"
)
