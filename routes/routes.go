package routes

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/controllers"
	"MamaCare/metrics"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Controller *controllers.Controller
	Issuer     *authorization.Issuer
	Revoker    authorization.Revoker
	Metrics    *metrics.Metrics
}

func Routes(r *gin.Engine, d Deps) {

	//public
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, util.SuccessResponse(gin.H{"status": "ok"}))
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	h := d.Controller
	h.Auth(r)
	h.Role(r)
	//privateroutes
	r.Use(authorization.JWTAuth(d.Issuer, d.Revoker))
	h.Session(r)
	h.User(r)
	h.Patient(r)
	h.Nurse(r)
	h.Assignment(r)
	h.Notification(r)
	h.Appointment(r)
	h.Risk(r)
	h.Report(r)
	h.Admin(r)
}
