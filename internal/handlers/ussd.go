package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"avara-ussd/internal/services"
	"avara-ussd/internal/ussd"
)

// USSDHandler terminates the telecom gateway protocol. The gateway POSTs the
// subscriber's phone number and the full dialed path; the response is plain
// text prefixed CON (render a menu) or END (close the session).
type USSDHandler struct {
	machine  *ussd.Machine
	notifier services.NotificationServiceInterface
}

// NewUSSDHandler creates a new USSD gateway handler. notifier may be nil, in
// which case terminal messages are not mirrored over SMS.
func NewUSSDHandler(machine *ussd.Machine, notifier services.NotificationServiceInterface) *USSDHandler {
	return &USSDHandler{machine: machine, notifier: notifier}
}

// Handle processes one gateway callback
func (h *USSDHandler) Handle(c *gin.Context) {
	phoneNumber := c.PostForm("phoneNumber")
	text := c.PostForm("text")

	response := h.machine.Handle(c.Request.Context(), phoneNumber, text)

	// Mirror terminal messages over SMS off the request path; a slow or
	// failing SMS provider must never delay or alter the gateway response.
	if message := ussd.TerminalMessage(response); message != "" && h.notifier != nil && phoneNumber != "" {
		go func() {
			if err := h.notifier.Send(phoneNumber, message); err != nil {
				log.Printf("Failed to send session SMS to %s: %v", phoneNumber, err)
			}
		}()
	}

	c.String(http.StatusOK, response)
}
