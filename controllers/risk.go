package controllers

import (
	"net/http"
	"strconv"

	"MamaCare/authorization"
	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Risk(router *gin.Engine) {
	risk := router.Group("/risk")
	{
		risk.POST("/predict", authorization.Authorize("risk", "predict"), h.PredictRisk)
		risk.GET("/history", authorization.Authorize("risk", "predict"), h.FetchRiskHistory)
	}
}

func (h *Controller) PredictRisk(c *gin.Context) {
	var req models.Vitals
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	assessment, err := h.svc.Risk.Assess(c.Request.Context(), caller(c).UID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(assessment))
}

func (h *Controller) FetchRiskHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		fail(c, util.InvalidArgument("limit must be a positive number"))
		return
	}
	history, err := h.svc.Risk.History(c.Request.Context(), caller(c).UID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(history))
}
