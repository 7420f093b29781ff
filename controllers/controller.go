package controllers

import (
	"MamaCare/authorization"
	"MamaCare/services"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller binds HTTP requests to the services.
type Controller struct {
	svc *services.Services
	log *zap.Logger
}

func New(svc *services.Services, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{svc: svc, log: log}
}

func fail(c *gin.Context, err error) {
	c.JSON(util.HTTPStatus(err), util.FailedResponse(err))
}

func badRequest(c *gin.Context, err error) {
	fail(c, util.InvalidArgument(err.Error()))
}

func caller(c *gin.Context) authorization.Identity {
	id, _ := authorization.CurrentIdentity(c)
	return id
}

// selfOr resolves the ":id" param, "me" meaning the caller.
func selfOr(c *gin.Context, param string) string {
	id := c.Param(param)
	if id == "me" {
		return caller(c).UID
	}
	return id
}
