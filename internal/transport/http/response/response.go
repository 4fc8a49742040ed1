package response

import (
	"github.com/gin-gonic/gin"

	"semantic-plagiarism/internal/app"
)

// ErrorBody is the error document clients read as errorData.detail.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Detail: detail})
}

// FromError writes err with the status its error kind maps to.
func FromError(c *gin.Context, err error) {
	Error(c, app.ErrorStatus(err), err.Error())
}
