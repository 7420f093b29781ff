package controllers

import (
	"net/http"

	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Auth(router *gin.Engine) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
}

func (h *Controller) Session(router *gin.Engine) {
	router.POST("/logout", h.Logout)
}

/*
* Bind the registration fields
* Pass to the service which creates the login and the patient profile
 */
func (h *Controller) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.svc.Auth.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.SuccessResponse(user))
}

/*
* Here binding happens with the respective fields if any error return error
* And if no error moves to services
 */
func (h *Controller) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.svc.Auth.SignIn(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(resp))
}

func (h *Controller) Logout(c *gin.Context) {
	if err := h.svc.Auth.SignOut(c.Request.Context(), caller(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse("signed out"))
}
