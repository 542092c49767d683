package worker

import (
	"github.com/spec-kit/hubops-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to ticket
// and scheduler events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
