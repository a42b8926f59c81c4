package controllers

import (
	"menthub/utils"
	"menthub/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// Stream upgrades to a push-only websocket carrying in-app notifications.
func (wc *WebSocketController) Stream(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := websocket.ServeWS(wc.hub, c, userID); err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("WebSocket upgrade failed")
	}
}
