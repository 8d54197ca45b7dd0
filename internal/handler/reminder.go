package handler

import (
	"net/http"
	"time"

	"github.com/peerlend/loan-engine/internal/service"
	"github.com/peerlend/loan-engine/pkg/response"
)

// ReminderHandler exposes the operator-facing on-demand reminder trigger,
// the same scan the scheduler runs on its cron cadence.
type ReminderHandler struct {
	service *service.ReminderService
}

func NewReminderHandler(service *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// Run handles POST /admin/reminders/run and returns the count of reminders
// sent.
func (h *ReminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	sent, err := h.service.ScanAndNotify(r.Context(), time.Now().UTC())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]int{"reminders_sent": sent})
}
