package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"canteen-backend/internal/notify/push"
	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/dto"
	"canteen-backend/pkg/logger"
)

// UserHandler covers the device-token registration and the manual push
// endpoint. Both sit on the user-directory collaborator.
type UserHandler struct {
	users core.UserDirectory
	push  *push.Client
	mylog *logger.Logger
}

func NewUserHandler(users core.UserDirectory, pushClient *push.Client, mylog *logger.Logger) *UserHandler {
	return &UserHandler{
		users: users,
		push:  pushClient,
		mylog: mylog,
	}
}

func (uh *UserHandler) RegisterDeviceToken(c *gin.Context) {
	var req dto.DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.DeviceToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and deviceToken are required"})
		return
	}
	if err := uh.users.SaveDeviceToken(c.Request.Context(), req.Email, req.DeviceToken); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Device token registered"})
}

// NotifyUser is a manual push trigger for staff. Unlike the dispatcher's
// fire-and-forget path, a delivery failure here is reported to the caller.
func (uh *UserHandler) NotifyUser(c *gin.Context) {
	var req dto.NotifyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Title == "" || req.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, title and body are required"})
		return
	}
	if uh.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push channel is not configured"})
		return
	}

	user, err := uh.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	if user.DeviceToken == "" {
		uh.mylog.Action("push_skipped").Warn("No device token registered", "email", req.Email)
		c.JSON(http.StatusNotFound, gin.H{"error": core.ErrNoDeviceToken.Error()})
		return
	}

	if err := uh.push.Send(c.Request.Context(), user.DeviceToken, req.Title, req.Body); err != nil {
		uh.mylog.Action("push_failed").Error("Manual push delivery failed", err, "email", req.Email)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send notification"})
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Notification sent"})
}
