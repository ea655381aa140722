package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/api/transport"
	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/notification"
	"github.com/fastygo/tasktracker/pkg/httpcontext"
)

// Responder turns a delivered notification into a user response.
type Responder interface {
	Respond(ctx context.Context, id, action string) (domain.NotificationResponse, error)
}

type NotificationHandler struct {
	baseHandler
	gateway   *notification.Gateway
	inbox     *notification.Inbox
	responder Responder
}

func NewNotificationHandler(
	gateway *notification.Gateway,
	inbox *notification.Inbox,
	responder Responder,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		gateway:     gateway,
		inbox:       inbox,
		responder:   responder,
	}
}

// @Summary Register for notifications
// @Tags notifications
// @Router /api/v1/notifications/register [post]
func (h *NotificationHandler) Register(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	token, ok := h.gateway.RegisterForNotifications(stdCtx)
	h.respondSuccess(ctx, http.StatusOK, transport.RegistrationView{Token: token, Enabled: ok})
}

// @Summary Schedule a test notification
// @Tags notifications
// @Router /api/v1/notifications/test [post]
func (h *NotificationHandler) Test(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondSuccess(ctx, http.StatusAccepted, transport.NewScheduledView(h.gateway.SendTestNotification(stdCtx)))
}

// @Summary Open a delivered notification
// @Tags notifications
// @Router /api/v1/notifications/{id}/respond [post]
func (h *NotificationHandler) Respond(ctx *fasthttp.RequestCtx) {
	var req transport.RespondRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.responder.Respond(stdCtx, pathID(ctx), req.Action)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Received notifications and the last opened task
// @Tags notifications
// @Router /api/v1/notifications/inbox [get]
func (h *NotificationHandler) Inbox(ctx *fasthttp.RequestCtx) {
	view := transport.InboxView{
		Received:  h.inbox.Received(),
		Responses: h.inbox.Responses(),
	}
	if view.Received == nil {
		view.Received = []domain.Notification{}
	}
	if view.Responses == nil {
		view.Responses = []domain.NotificationResponse{}
	}
	if id, ok := h.inbox.LastOpenedTask(); ok {
		view.LastOpenedTask = id
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}
