package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowkit/errors"
)

// HeaderRunID names the run a response refers to. It is set on failed runs
// too, whose body is an error envelope.
const HeaderRunID = "X-Run-Id"

// DataResponse wraps every successful body. Count is set for collections.
type DataResponse struct {
	Data  any  `json:"data"`
	Count *int `json:"count,omitempty"`
}

// RespondWithError aborts the request with err as an error envelope. An
// AppError keeps its status; anything else is reported as a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends data with status 200.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondList sends items with status 200 and their count.
func RespondList[T any](c *gin.Context, items []T) {
	n := len(items)
	c.JSON(http.StatusOK, DataResponse{Data: items, Count: &n})
}

// respondRun reports a finished run. A successful run is sent back whole
// with status 201; a failed one as the mapped error carrying its id.
func respondRun(c *gin.Context, run Run, err error) {
	c.Header(HeaderRunID, run.ID)
	if err != nil {
		RespondWithError(c, runError(err).WithDetail("run_id", run.ID))
		return
	}
	c.JSON(http.StatusCreated, DataResponse{Data: run})
}
