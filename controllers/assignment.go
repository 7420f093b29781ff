package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Assignment(router *gin.Engine) {
	assignment := router.Group("/assignments")
	{
		assignment.POST("", authorization.Authorize("assignment", "manage"), h.AssignNurse)
		assignment.POST("/reassign", authorization.Authorize("assignment", "manage"), h.ReassignNurse)
		assignment.DELETE("/:nurseId/:patientId", authorization.Authorize("assignment", "manage"), h.UnassignNurse)
	}
}

/*
* Bind patientId and nurseId
* The caller is recorded as the assigning doctor
 */
func (h *Controller) AssignNurse(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Assignments.Assign(c.Request.Context(), req.PatientID, req.NurseID, caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(res))
}

func (h *Controller) ReassignNurse(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Assignments.Reassign(c.Request.Context(), req.PatientID, req.NurseID, caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(res))
}

func (h *Controller) UnassignNurse(c *gin.Context) {
	res, err := h.svc.Assignments.Unassign(c.Request.Context(), c.Param("nurseId"), c.Param("patientId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(res))
}
