package controllers

import (
	"net/http"

	"MamaCare/role"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Role(router *gin.Engine) {
	router.GET("/roles/fetchAll", h.ReadRoles)
}

// ReadRoles lists every assignable role with its default privileges.
func (h *Controller) ReadRoles(c *gin.Context) {
	grants := []role.Grant{}
	for _, r := range []role.Role{role.Patient, role.Nurse, role.Doctor, role.Admin} {
		grants = append(grants, role.DefaultGrant(r, "system"))
	}
	c.JSON(http.StatusOK, util.SuccessResponse(grants))
}
