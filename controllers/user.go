package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) User(router *gin.Engine) {
	users := router.Group("/users")
	{
		users.GET("/me", authorization.Authorize("profile", "view"), h.GetProfile)
		users.PUT("/me", authorization.Authorize("profile", "update"), h.UpdateProfile)
		users.GET("/:id", authorization.Authorize("user", "view"), h.GetUser)
		users.PUT("/:id/role", authorization.Authorize("user", "manage"), h.ChangeRole)
	}
}

func (h *Controller) GetProfile(c *gin.Context) {
	user, err := h.svc.Users.GetProfile(c.Request.Context(), caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(user))
}

/*
* Bind the fields which are need to be updated
* Pass to the service with the caller id
 */
func (h *Controller) UpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.svc.Users.UpdateProfile(c.Request.Context(), caller(c).UID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(user))
}

func (h *Controller) GetUser(c *gin.Context) {
	user, err := h.svc.Users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(user))
}

/*
* Get the user id from params and the role from the body
* The service resets permissions and revokes the user's tokens
 */
func (h *Controller) ChangeRole(c *gin.Context) {
	var req models.RoleChange
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.svc.Users.ChangeRole(c.Request.Context(), c.Param("id"), req.Role, caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(user))
}
