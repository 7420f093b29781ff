package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/role"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Nurse(router *gin.Engine) {
	nurse := router.Group("/nurses")
	{
		nurse.GET("/available", authorization.Authorize("nurse", "view"), h.ListAvailableNurses)
		nurse.GET("/:id/patients", authorization.Authorize("patient", "view"), h.ListAssignedPatients)
	}
}

/*
* The optional context query narrows the result to one department
 */
func (h *Controller) ListAvailableNurses(c *gin.Context) {
	nurses, err := h.svc.Assignments.ListAvailableNurses(c.Request.Context(), c.Query("context"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(nurses))
}

/*
* "me" resolves to the caller
* A nurse may only list their own patients
 */
func (h *Controller) ListAssignedPatients(c *gin.Context) {
	nurseID := selfOr(c, "id")
	if id := caller(c); id.Role == role.Nurse && id.UID != nurseID {
		fail(c, util.PermissionDenied(util.NOT_ALLOWED))
		return
	}
	patients, err := h.svc.Assignments.ListAssignedPatients(c.Request.Context(), nurseID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(patients))
}
