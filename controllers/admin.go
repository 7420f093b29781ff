package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type unblockRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Controller) Admin(router *gin.Engine) {
	admin := router.Group("/admin")
	{
		admin.POST("/reconcile", authorization.Authorize("user", "manage"), h.ReconcileLoads)
		admin.POST("/unblock", authorization.Authorize("user", "manage"), h.UnblockLogin)
	}
}

func (h *Controller) ReconcileLoads(c *gin.Context) {
	corrections, err := h.svc.Reconcile.Reconcile(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(corrections))
}

func (h *Controller) UnblockLogin(c *gin.Context) {
	var req unblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Auth.Unblock(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("login unblocked", zap.String("by", caller(c).UID))
	c.JSON(http.StatusOK, util.SuccessResponse("login unblocked"))
}
