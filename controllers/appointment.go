package controllers

import (
	"net/http"

	"MamaCare/authorization"
	"MamaCare/models"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Appointment(router *gin.Engine) {
	appointment := router.Group("/appointments")
	{
		appointment.POST("", authorization.Authorize("appointment", "create"), h.BookAppointment)
		appointment.GET("", authorization.Authorize("appointment", "view"), h.FetchAppointments)
		appointment.PUT("/:id/status", authorization.Authorize("appointment", "update"), h.UpdateAppointmentStatus)
	}
}

/*
* Bind the doctor and the slot
* The caller is the patient
 */
func (h *Controller) BookAppointment(c *gin.Context) {
	var req models.BookAppointment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	appt, err := h.svc.Appointments.Book(c.Request.Context(), caller(c).UID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, util.SuccessResponse(appt))
}

func (h *Controller) FetchAppointments(c *gin.Context) {
	appts, err := h.svc.Appointments.ListForUser(c.Request.Context(), caller(c).UID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(appts))
}

/*
* Bind newStatus and the optional cancellation reason
* The service checks the caller owns the appointment
 */
func (h *Controller) UpdateAppointmentStatus(c *gin.Context) {
	var req models.AppointmentStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Appointments.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, util.SuccessResponse(res))
}
