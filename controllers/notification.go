package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Notification(router *gin.Engine) {
	notification := router.Group("/notifications")
	{
		notification.POST("/tokens", authorization.Authorize("notification", "register"), h.RegisterToken)
		notification.DELETE("/tokens", authorization.Authorize("notification", "register"), h.RemoveToken)
		notification.POST("/direct", authorization.Authorize("notification", "send"), h.SendDirect)
		notification.POST("/users/:id", authorization.Authorize("notification", "send"), h.NotifyUser)
	}
}

func (h *Controller) RegisterToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Notifications.RegisterToken(c.Request.Context(), caller(c).UID, req.Token); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse("token registered"))
}

func (h *Controller) RemoveToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Notifications.RemoveToken(c.Request.Context(), caller(c).UID, req.Token); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse("token removed"))
}

func (h *Controller) SendDirect(c *gin.Context) {
	var req models.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.svc.Notifications.SendDirect(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(gin.H{"messageId": id}))
}

/*
* Fan the message out to every device of the user
* The token field of the body is ignored
 */
func (h *Controller) NotifyUser(c *gin.Context) {
	var req models.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Notifications.NotifyUser(c.Request.Context(), c.Param("id"), req.Title, req.Body, req.Data, req.HighPriority)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(res))
}
