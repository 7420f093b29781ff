package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Patient(router *gin.Engine) {
	patient := router.Group("/patients")
	{
		patient.GET("/me/nurse", authorization.Authorize("profile", "view"), h.FetchAssignedNurse)
	}
}

// FetchAssignedNurse returns the caller's assigned nurse.
func (h *Controller) FetchAssignedNurse(c *gin.Context) {
	nurse, err := h.svc.Assignments.AssignedNurse(c.Request.Context(), caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(nurse))
}
