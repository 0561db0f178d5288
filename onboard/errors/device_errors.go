package errors

import "fmt"

type TaskStateError struct {
	Task    string
	Running bool
}

func (err TaskStateError) Error() string {
	if len(err.Task) == 0 {
		err.Task = "UNKOWN"
	}

	if err.Running {
		return fmt.Sprintf("task %s is already running", err.Task)
	}
	return fmt.Sprintf("task %s is not running", err.Task)
}
