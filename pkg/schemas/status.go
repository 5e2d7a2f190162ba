// Package schemas defines the wire and on-disk record shapes shared by the
// store, the API and the supervisor.
package schemas

// FileNotOnServerMessage is the message reported for any id the store has
// no record of.
const FileNotOnServerMessage = "File not on server"

// JobStatus is the status record kept in the job namespace of the store.
// Exactly one of Pending, Busy, Error or Finished is true for a known job;
// a job the store has no record of is reported with all four false.
type JobStatus struct {
	Message  string `json:"message"`
	Pending  bool   `json:"pending"`
	Busy     bool   `json:"busy"`
	Error    bool   `json:"error"`
	Finished bool   `json:"finished"`
}

// Unknown reports whether this is the synthetic status used when a job id
// has no record, or its record could not be read.
func (s JobStatus) Unknown() bool {
	return !s.Pending && !s.Busy && !s.Error && !s.Finished
}

// NewUnknownStatus builds the synthetic status for an id the store has never
// recorded.
func NewUnknownStatus() JobStatus {
	return JobStatus{Message: FileNotOnServerMessage}
}

// PendingStatus builds the status recorded while a job waits to be picked
// up by a worker.
func PendingStatus(message string) JobStatus {
	return JobStatus{Message: message, Pending: true}
}

// BusyStatus builds the status recorded while a worker is processing a job.
func BusyStatus(message string) JobStatus {
	return JobStatus{Message: message, Busy: true}
}

// ErrorStatus builds the status recorded when processing a job failed.
func ErrorStatus(message string) JobStatus {
	return JobStatus{Message: message, Error: true}
}

// FinishedStatus builds the status recorded when a job completed successfully.
func FinishedStatus(message string) JobStatus {
	return JobStatus{Message: message, Finished: true}
}

// ProcessStatus is the status record kept in the process namespace. It
// exists only while a worker child owns a job; its presence, checked
// against the pid's liveness, is what makes the orphan sweep possible
// after an unclean shutdown.
type ProcessStatus struct {
	PID int `json:"pid"`
}

// Health is the payload returned by the health endpoint.
type Health struct {
	Healthy           bool   `json:"healthy"`
	QueueSizeAtTagger int64  `json:"queueSizeAtTagger"`
	ProcessingSpeed   int    `json:"processingSpeed"`
	Message           string `json:"message"`
}
