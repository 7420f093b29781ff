package controllers

import (
	"net/http"
	"time"

	"MamaCare/authorization"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Controller) Report(router *gin.Engine) {
	report := router.Group("/reports")
	report.GET("/nurse-roster", authorization.Authorize("report", "export"), h.NurseRoster)
}

/*
* format=json returns the rows, anything else downloads the workbook
 */
func (h *Controller) NurseRoster(c *gin.Context) {
	if c.Query("format") == "json" {
		entries, err := h.svc.Reports.Roster(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse(entries))
		return
	}
	data, err := h.svc.Reports.RosterWorkbook(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	filename := "nurse-roster-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
