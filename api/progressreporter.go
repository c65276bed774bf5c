package api

// ProgressReporter receives progress of a batch operation. Update is
// called before each file is processed and Finished once at the end.
type ProgressReporter interface {
	Update(name string, current int, total int, canCancel bool, modal bool)
	Finished(name string, total int, failures int)
	Error(error string, err error)
}

type SenderProgressReporter struct {
	sender Sender

	ProgressReporter
}

func NewSenderProgressReporter(sender Sender) ProgressReporter {
	return SenderProgressReporter{
		sender: sender,
	}
}

func (s SenderProgressReporter) Update(name string, current int, total int, canCancel bool, modal bool) {
	s.sender.SendCommandToTopic(ProcessStatusUpdated, &UpdateProgressCommand{
		Name:      name,
		Current:   current,
		Total:     total,
		CanCancel: canCancel,
		Modal:     modal,
	})
}

// Finished always sends a 0/0 status so that progress views are hidden
// even when the operation was cancelled.
func (s SenderProgressReporter) Finished(name string, total int, failures int) {
	s.sender.SendCommandToTopic(ProcessStatusUpdated, &UpdateProgressCommand{
		Name:     name,
		Current:  0,
		Total:    0,
		Done:     true,
		Failures: failures,
	})
}

func (s SenderProgressReporter) Error(error string, err error) {
	s.sender.SendError(error, err)
}

// NoopProgressReporter discards all progress.
type NoopProgressReporter struct{}

func (s NoopProgressReporter) Update(string, int, int, bool, bool) {}
func (s NoopProgressReporter) Finished(string, int, int)           {}
func (s NoopProgressReporter) Error(string, error)                 {}
