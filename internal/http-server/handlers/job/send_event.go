package job

import "coinflip/internal/http-server/handlers/event"

// SendEventJob publishes a settlement event off the request path.
type SendEventJob struct {
	EventMessage event.Message
	Publisher    event.Publisher
}

func (job *SendEventJob) Execute() {
	if job.Publisher == nil {
		return
	}

	// delivery is best effort; settlement already completed
	_ = job.Publisher.TriggerEvent(job.EventMessage)
}
